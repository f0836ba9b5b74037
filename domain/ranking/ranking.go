package ranking

import (
	"math"
	"sort"

	"rankfair/internal/errors"
)

// DefaultTopK is the window size evaluated when callers do not pick one
const DefaultTopK = 100

// Ranking is a Dataset ordered by one score column, highest first, with a
// dense 0-based rank. Equal scores keep their original relative order.
type Ranking struct {
	ScoreColumn string
	Scores      []float64
	Order       []int

	data *Dataset
}

// Prepare sorts ds by scoreColumn descending. The dataset itself is left
// untouched; rank r corresponds to original row Order[r].
func Prepare(ds *Dataset, scoreColumn string) (*Ranking, error) {
	if ds == nil {
		return nil, errors.InvalidInput("dataset is nil")
	}
	scores, err := ds.Scores(scoreColumn)
	if err != nil {
		return nil, err
	}
	for i, s := range scores {
		if math.IsNaN(s) {
			return nil, errors.InvalidInput("row %d has a NaN score in column %q", i, scoreColumn)
		}
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	sorted := make([]float64, len(scores))
	for rank, row := range order {
		sorted[rank] = scores[row]
	}

	return &Ranking{
		ScoreColumn: scoreColumn,
		Scores:      sorted,
		Order:       order,
		data:        ds,
	}, nil
}

// Len returns the number of ranked records
func (r *Ranking) Len() int {
	return len(r.Order)
}

// Dataset returns the source dataset
func (r *Ranking) Dataset() *Dataset {
	return r.data
}

// ID returns the identifier of the record at rank
func (r *Ranking) ID(rank int) string {
	return r.data.ids[r.Order[rank]]
}

// Attribute returns a categorical column in rank order
func (r *Ranking) Attribute(name string) ([]string, error) {
	values, err := r.data.Attribute(name)
	if err != nil {
		return nil, err
	}
	ranked := make([]string, len(values))
	for rank, row := range r.Order {
		ranked[rank] = values[row]
	}
	return ranked, nil
}

// ProtectedGroup identifies the records whose Attribute equals Value
type ProtectedGroup struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Value     string `json:"value" yaml:"value"`
}

// BaseRates are the group sizes over the whole ranking
type BaseRates struct {
	TotalN  int     `json:"total_n" yaml:"total_n"`
	ProN    int     `json:"pro_n" yaml:"pro_n"`
	UnproN  int     `json:"unpro_n" yaml:"unpro_n"`
	ProProb float64 `json:"pro_prob" yaml:"pro_prob"`
}

// GroupView is a Ranking seen through one ProtectedGroup
type GroupView struct {
	Group      ProtectedGroup
	Membership []bool
	Rates      BaseRates
}

// Group derives membership and base rates for g. It fails with InvalidInput
// when the attribute or value is unknown or the ranking has fewer than two
// records, and with DegenerateGroup when either side of the split is empty.
func (r *Ranking) Group(g ProtectedGroup) (*GroupView, error) {
	values, err := r.Attribute(g.Attribute)
	if err != nil {
		return nil, err
	}
	domain, err := r.data.Domain(g.Attribute)
	if err != nil {
		return nil, err
	}
	known := false
	for _, v := range domain {
		if v == g.Value {
			known = true
			break
		}
	}
	if !known {
		return nil, errors.InvalidInput("protected value %q not found in attribute %q", g.Value, g.Attribute)
	}

	total := len(values)
	if total < 2 {
		return nil, errors.InvalidInput("ranking has %d records, need at least 2", total)
	}

	membership := make([]bool, total)
	pro := 0
	for i, v := range values {
		if v == g.Value {
			membership[i] = true
			pro++
		}
	}
	if pro == 0 {
		return nil, errors.DegenerateGroup("protected group %s=%s has no members", g.Attribute, g.Value)
	}
	if pro == total {
		return nil, errors.DegenerateGroup("unprotected group for %s=%s has no members", g.Attribute, g.Value)
	}

	return &GroupView{
		Group:      g,
		Membership: membership,
		Rates: BaseRates{
			TotalN:  total,
			ProN:    pro,
			UnproN:  total - pro,
			ProProb: float64(pro) / float64(total),
		},
	}, nil
}

// ProtectedPositions returns the 0-based ranks of protected records
func (v *GroupView) ProtectedPositions() []int {
	positions := make([]int, 0, v.Rates.ProN)
	for i, m := range v.Membership {
		if m {
			positions = append(positions, i)
		}
	}
	return positions
}

// ProtectedInTop counts protected records among the first k
func (v *GroupView) ProtectedInTop(k int) int {
	if k > len(v.Membership) {
		k = len(v.Membership)
	}
	count := 0
	for _, m := range v.Membership[:k] {
		if m {
			count++
		}
	}
	return count
}

// Tag marks a ranked item as belonging to the tested group or not
type Tag uint8

const (
	TagUnprotected Tag = iota
	TagProtected
)

func (t Tag) String() string {
	if t == TagProtected {
		return "pro"
	}
	return "unpro"
}

// TaggedItem is one entry of a transformed ranking
type TaggedItem struct {
	ID  int
	Tag Tag
}

// Transform re-expresses the first k ranks as tagged items. With flip set
// the unprotected records carry TagProtected, so a test for
// under-representation of the tagged group examines the other side.
func (v *GroupView) Transform(k int, flip bool) []TaggedItem {
	if k > len(v.Membership) {
		k = len(v.Membership)
	}
	items := make([]TaggedItem, k)
	for i := 0; i < k; i++ {
		tag := TagUnprotected
		if v.Membership[i] != flip {
			tag = TagProtected
		}
		items[i] = TaggedItem{ID: i, Tag: tag}
	}
	return items
}

// ClampTopK limits k to half the ranking size, rounding down
func ClampTopK(k, total int) int {
	if half := total / 2; k > half {
		return half
	}
	return k
}

// PreferredPairs counts protected-preferred pairs from the ascending 0-based
// positions of the protected items in a ranking of totalN items. Each
// protected item at position p with r protected items still below it
// contributes totalN - p - r.
func PreferredPairs(positions []int, totalN int) int {
	n := len(positions)
	count := 0
	for i, pos := range positions {
		remaining := n - (i + 1)
		count += totalN - pos - remaining
	}
	return count
}
