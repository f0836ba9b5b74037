package excel

// RawRowData represents a row of raw cell text keyed by column header
type RawRowData map[string]string

// ExcelData represents the complete sheet or CSV table
type ExcelData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}
