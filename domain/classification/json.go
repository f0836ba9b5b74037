package classification

import (
	"encoding/json"
	"math"
)

// MarshalJSON writes NaN cells as null, which encoding/json cannot represent
func (v MetricValues) MarshalJSON() ([]byte, error) {
	cells := make([]*float64, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) {
			x := v[i]
			cells[i] = &x
		}
	}
	return json.Marshal(cells)
}

// UnmarshalJSON reads null cells back as NaN
func (v *MetricValues) UnmarshalJSON(data []byte) error {
	var cells []*float64
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	for i := range v {
		v[i] = math.NaN()
		if i < len(cells) && cells[i] != nil {
			v[i] = *cells[i]
		}
	}
	return nil
}
