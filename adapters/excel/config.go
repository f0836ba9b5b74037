package excel

// ExcelConfig describes how a file maps onto a dataset
type ExcelConfig struct {
	FilePath string `json:"file_path"`
	// IDColumn names the record identifier column. When empty a column
	// called id, record_id, ... is used if present.
	IDColumn string `json:"id_column"`
	// CategoricalColumns are kept as text even if every cell is numeric,
	// e.g. a protected attribute coded 0/1.
	CategoricalColumns []string `json:"categorical_columns"`
}

// DefaultExcelConfig returns a config that infers everything
func DefaultExcelConfig(filePath string) ExcelConfig {
	return ExcelConfig{FilePath: filePath}
}
