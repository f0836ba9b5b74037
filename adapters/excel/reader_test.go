package excel

import (
	"os"
	"path/filepath"
	"testing"

	"rankfair/domain/classification"
	"rankfair/domain/ranking"
	"rankfair/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeXLSX(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadRanking_CSV(t *testing.T) {
	path := writeCSV(t, "id,Score,group,sex\na,3.5,P,1\nb,9,U,0\nc,1,U,1\n")

	cfg := DefaultExcelConfig(path)
	cfg.CategoricalColumns = []string{"sex"}
	ds, err := ReadRanking(cfg)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []string{"a", "b", "c"}, ds.IDs())

	scores, err := ds.Scores("Score")
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5, 9, 1}, scores)

	sex, err := ds.Attribute("sex")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "0", "1"}, sex)

	_, err = ds.Scores("id")
	assert.Error(t, err)

	names := make([]string, 0)
	for _, c := range ds.Schema().Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Score", "group", "sex"}, names)
}

func TestReadRanking_XLSX(t *testing.T) {
	path := writeXLSX(t, [][]interface{}{
		{"candidate", "Score", "group"},
		{"x1", 10, "P"},
		{"x2", 8.5, "U"},
		{"x3", 7, "U"},
		{"x4", 2, "P"},
	})

	ds, err := ReadRanking(DefaultExcelConfig(path))
	require.NoError(t, err)

	r, err := ranking.Prepare(ds, "Score")
	require.NoError(t, err)
	view, err := r.Group(ranking.ProtectedGroup{Attribute: "group", Value: "P"})
	require.NoError(t, err)
	assert.Equal(t, 2, view.Rates.ProN)

	// candidate is not a recognised id name, so it stays a categorical column
	col, ok := ds.Schema().Column("candidate")
	require.True(t, ok)
	assert.Equal(t, ranking.KindCategorical, col.Kind)
}

func TestReadData_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"header only", "Score,group\n"},
		{"empty cell", "Score,group\n1,P\n2,\n"},
		{"short row", "Score,group\n1,P\n2\n"},
		{"long row", "Score,group\n1,P,extra\n"},
		{"duplicate header", "Score,Score\n1,2\n"},
		{"blank header", "Score,\n1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataReader(writeCSV(t, tt.content)).ReadData()
			assert.True(t, errors.HasCode(err, errors.CodeInvalidInput), "got %v", err)
		})
	}

	_, err := NewDataReader(filepath.Join(t.TempDir(), "missing.csv")).ReadData()
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestInferColumnKinds(t *testing.T) {
	data := &ExcelData{
		Headers: []string{"a", "b", "c"},
		Rows: []RawRowData{
			{"a": "1", "b": "x", "c": "1e3"},
			{"a": "2.5", "b": "3", "c": "NaN"},
		},
	}
	kinds := InferColumnKinds(data)
	assert.Equal(t, ranking.KindNumeric, kinds["a"])
	assert.Equal(t, ranking.KindCategorical, kinds["b"])
	assert.Equal(t, ranking.KindCategorical, kinds["c"])
}

func TestDetectEntityColumn(t *testing.T) {
	data := &ExcelData{
		Headers: []string{"Score", "ID"},
		Rows:    []RawRowData{{"Score": "1", "ID": "a"}, {"Score": "2", "ID": "b"}},
	}
	col, ok := DetectEntityColumn(data)
	assert.True(t, ok)
	assert.Equal(t, "ID", col)

	data.Rows[1]["ID"] = "a"
	_, ok = DetectEntityColumn(data)
	assert.False(t, ok)
}

func TestReadLabeled(t *testing.T) {
	path := writeCSV(t, "label,pred,sex\n1,1,1\n0,1,1\n1,0,0\n0,0,0\n")
	cfg := LabeledConfig{
		FilePath:         path,
		LabelColumn:      "label",
		PredictionColumn: "pred",
		FavorableLabel:   1,
		Attributes: []classification.ProtectedAttribute{
			{Name: "sex", Privileged: []float64{1}, Unprivileged: []float64{0}},
		},
	}

	ds, predicted, err := ReadLabeled(cfg)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1, 0}, ds.Labels)
	assert.Equal(t, []float64{1, 1, 0, 0}, predicted)
	assert.Equal(t, []float64{1, 1, 0, 0}, ds.Features["sex"])

	cfg.PredictionColumn = "missing"
	_, _, err = ReadLabeled(cfg)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}
