package excel

import (
	"log"

	"rankfair/domain/classification"
	"rankfair/domain/ranking"
	"rankfair/internal/errors"
)

// ReadRanking reads cfg.FilePath into a ranking dataset
func ReadRanking(cfg ExcelConfig) (*ranking.Dataset, error) {
	data, err := NewDataReader(cfg.FilePath).ReadData()
	if err != nil {
		return nil, err
	}
	return ToRankingDataset(data, cfg)
}

// ToRankingDataset converts raw rows into a dataset, keeping header order.
// The identifier column, if any, is not part of the schema.
func ToRankingDataset(data *ExcelData, cfg ExcelConfig) (*ranking.Dataset, error) {
	idColumn := cfg.IDColumn
	if idColumn == "" {
		idColumn, _ = DetectEntityColumn(data)
	} else if !hasHeader(data, idColumn) {
		return nil, errors.InvalidInput("id column %q not found", idColumn)
	}

	forced := make(map[string]bool, len(cfg.CategoricalColumns))
	for _, name := range cfg.CategoricalColumns {
		forced[name] = true
	}
	kinds := InferColumnKinds(data)

	var ids []string
	if idColumn != "" {
		ids = make([]string, len(data.Rows))
		for i, row := range data.Rows {
			ids[i] = row[idColumn]
		}
	}

	schema := ranking.Schema{}
	numeric := make(map[string][]float64)
	categorical := make(map[string][]string)
	for _, header := range data.Headers {
		if header == idColumn {
			continue
		}
		kind := kinds[header]
		if forced[header] {
			kind = ranking.KindCategorical
		}
		schema.Columns = append(schema.Columns, ranking.Column{Name: header, Kind: kind})

		switch kind {
		case ranking.KindNumeric:
			values := make([]float64, len(data.Rows))
			for i, row := range data.Rows {
				values[i], _ = parseNumber(row[header])
			}
			numeric[header] = values
		default:
			values := make([]string, len(data.Rows))
			for i, row := range data.Rows {
				values[i] = row[header]
			}
			categorical[header] = values
		}
	}

	log.Printf("[DataReader] dataset built: %d numeric and %d categorical columns, id column %q",
		len(numeric), len(categorical), idColumn)
	return ranking.NewDataset(schema, ids, numeric, categorical)
}

// LabeledConfig names the columns of a classification file
type LabeledConfig struct {
	FilePath         string
	LabelColumn      string
	PredictionColumn string
	FavorableLabel   float64
	// Attributes lists the protected columns with their privileged and
	// unprivileged values
	Attributes []classification.ProtectedAttribute
}

// ReadLabeled reads cfg.FilePath into a labeled dataset and its predictions
func ReadLabeled(cfg LabeledConfig) (*classification.LabeledDataset, []float64, error) {
	data, err := NewDataReader(cfg.FilePath).ReadData()
	if err != nil {
		return nil, nil, err
	}
	return ToLabeledDataset(data, cfg)
}

// ToLabeledDataset extracts labels, predictions and every protected column.
// All of them must be numeric.
func ToLabeledDataset(data *ExcelData, cfg LabeledConfig) (*classification.LabeledDataset, []float64, error) {
	labels, err := numericColumn(data, cfg.LabelColumn)
	if err != nil {
		return nil, nil, err
	}
	predicted, err := numericColumn(data, cfg.PredictionColumn)
	if err != nil {
		return nil, nil, err
	}

	ds := &classification.LabeledDataset{
		Labels:              labels,
		FavorableLabel:      cfg.FavorableLabel,
		ProtectedAttributes: cfg.Attributes,
		Features:            make(map[string][]float64, len(cfg.Attributes)),
	}
	for _, attr := range cfg.Attributes {
		values, err := numericColumn(data, attr.Name)
		if err != nil {
			return nil, nil, err
		}
		ds.Features[attr.Name] = values
	}
	if err := ds.Validate(); err != nil {
		return nil, nil, err
	}
	return ds, predicted, nil
}

func numericColumn(data *ExcelData, name string) ([]float64, error) {
	if !hasHeader(data, name) {
		return nil, errors.InvalidInput("column %q not found", name)
	}
	values := make([]float64, len(data.Rows))
	for i, row := range data.Rows {
		v, err := parseNumber(row[name])
		if err != nil {
			return nil, errors.InvalidInput("row %d of column %q is not numeric: %v", i+2, name, err)
		}
		values[i] = v
	}
	return values, nil
}

func hasHeader(data *ExcelData, name string) bool {
	for _, h := range data.Headers {
		if h == name {
			return true
		}
	}
	return false
}
