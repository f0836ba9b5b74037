package ranking

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strconv"

	"rankfair/domain/core"
	"rankfair/internal/errors"
)

// ColumnKind distinguishes score columns from group attributes
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
)

// Column describes one named column of a Dataset. Domain optionally lists
// every admissible value of a categorical column; when empty the observed
// values form the domain.
type Column struct {
	Name   string     `json:"name" yaml:"name"`
	Kind   ColumnKind `json:"kind" yaml:"kind"`
	Domain []string   `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// Schema is the ordered column list of a Dataset
type Schema struct {
	Columns []Column `json:"columns" yaml:"columns"`
}

// Column looks up a column by name
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Dataset is an immutable, schema-validated column table of scored records
type Dataset struct {
	schema      Schema
	ids         []string
	numeric     map[string][]float64
	categorical map[string][]string
	rows        int
}

// NewDataset validates the columns against schema and builds a Dataset.
// ids may be nil, in which case row positions are used as identifiers.
func NewDataset(schema Schema, ids []string, numeric map[string][]float64, categorical map[string][]string) (*Dataset, error) {
	if len(schema.Columns) == 0 {
		return nil, errors.InvalidInput("dataset schema has no columns")
	}

	rows := -1
	checkLen := func(name string, n int) error {
		if rows == -1 {
			rows = n
			return nil
		}
		if n != rows {
			return errors.InvalidInput("column %q has %d rows, expected %d", name, n, rows)
		}
		return nil
	}

	ds := &Dataset{
		schema:      schema,
		numeric:     make(map[string][]float64),
		categorical: make(map[string][]string),
	}

	seen := make(map[string]bool, len(schema.Columns))
	for _, col := range schema.Columns {
		if col.Name == "" {
			return nil, errors.InvalidInput("column name cannot be empty")
		}
		if seen[col.Name] {
			return nil, errors.InvalidInput("duplicate column %q", col.Name)
		}
		seen[col.Name] = true

		switch col.Kind {
		case KindNumeric:
			values, ok := numeric[col.Name]
			if !ok {
				return nil, errors.InvalidInput("numeric column %q has no data", col.Name)
			}
			if err := checkLen(col.Name, len(values)); err != nil {
				return nil, err
			}
			ds.numeric[col.Name] = append([]float64(nil), values...)
		case KindCategorical:
			values, ok := categorical[col.Name]
			if !ok {
				return nil, errors.InvalidInput("categorical column %q has no data", col.Name)
			}
			if err := checkLen(col.Name, len(values)); err != nil {
				return nil, err
			}
			if len(col.Domain) > 0 {
				allowed := make(map[string]bool, len(col.Domain))
				for _, v := range col.Domain {
					allowed[v] = true
				}
				for i, v := range values {
					if !allowed[v] {
						return nil, errors.InvalidInput("row %d of column %q has value %q outside its domain", i, col.Name, v)
					}
				}
			}
			ds.categorical[col.Name] = append([]string(nil), values...)
		default:
			return nil, errors.InvalidInput("column %q has unknown kind %q", col.Name, col.Kind)
		}
	}

	for name := range numeric {
		if !seen[name] {
			return nil, errors.InvalidInput("numeric column %q is not in the schema", name)
		}
	}
	for name := range categorical {
		if !seen[name] {
			return nil, errors.InvalidInput("categorical column %q is not in the schema", name)
		}
	}

	if ids == nil {
		ids = make([]string, rows)
		for i := range ids {
			ids[i] = strconv.Itoa(i)
		}
	}
	if len(ids) != rows {
		return nil, errors.InvalidInput("got %d ids for %d rows", len(ids), rows)
	}
	ds.ids = append([]string(nil), ids...)
	ds.rows = rows

	return ds, nil
}

// FromColumns builds a Dataset whose schema is inferred from the maps,
// with columns ordered by name.
func FromColumns(ids []string, numeric map[string][]float64, categorical map[string][]string) (*Dataset, error) {
	schema := Schema{}
	for _, name := range sortedKeys(numeric) {
		schema.Columns = append(schema.Columns, Column{Name: name, Kind: KindNumeric})
	}
	for _, name := range sortedKeys(categorical) {
		schema.Columns = append(schema.Columns, Column{Name: name, Kind: KindCategorical})
	}
	return NewDataset(schema, ids, numeric, categorical)
}

// Schema returns the dataset schema
func (d *Dataset) Schema() Schema {
	return d.schema
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return d.rows
}

// IDs returns a copy of the row identifiers
func (d *Dataset) IDs() []string {
	return append([]string(nil), d.ids...)
}

// Scores returns a copy of a numeric column
func (d *Dataset) Scores(name string) ([]float64, error) {
	col, ok := d.schema.Column(name)
	if !ok {
		return nil, errors.InvalidInput("score column %q not found", name)
	}
	if col.Kind != KindNumeric {
		return nil, errors.InvalidInput("column %q is %s, not numeric", name, col.Kind)
	}
	return append([]float64(nil), d.numeric[name]...), nil
}

// Attribute returns a copy of a categorical column
func (d *Dataset) Attribute(name string) ([]string, error) {
	col, ok := d.schema.Column(name)
	if !ok {
		return nil, errors.InvalidInput("attribute %q not found", name)
	}
	if col.Kind != KindCategorical {
		return nil, errors.InvalidInput("attribute %q is %s, not categorical", name, col.Kind)
	}
	return append([]string(nil), d.categorical[name]...), nil
}

// Domain returns the admissible values of a categorical column: the declared
// domain if any, otherwise the distinct observed values in sorted order.
func (d *Dataset) Domain(name string) ([]string, error) {
	values, err := d.Attribute(name)
	if err != nil {
		return nil, err
	}
	col, _ := d.schema.Column(name)
	if len(col.Domain) > 0 {
		return append([]string(nil), col.Domain...), nil
	}
	distinct := make(map[string]bool)
	for _, v := range values {
		distinct[v] = true
	}
	out := make([]string, 0, len(distinct))
	for v := range distinct {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// Fingerprint hashes the schema and every cell so reports can be tied to the
// exact data they were computed from.
func (d *Dataset) Fingerprint() core.Hash {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	for _, id := range d.ids {
		write(id)
	}
	for _, col := range d.schema.Columns {
		write(col.Name)
		write(string(col.Kind))
		switch col.Kind {
		case KindNumeric:
			for _, v := range d.numeric[col.Name] {
				write(strconv.FormatUint(math.Float64bits(v), 16))
			}
		case KindCategorical:
			for _, v := range d.categorical[col.Name] {
				write(v)
			}
		}
	}
	return core.Hash(hex.EncodeToString(h.Sum(nil)))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
