package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rankfair/domain/ranking"
	"rankfair/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*ExcelData, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.InvalidInput("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, errors.InvalidInput("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads Excel data from Sheet1 into structured format
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	// Always use Sheet1
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read Sheet1")
	}
	log.Printf("[DataReader] Sheet1 read in %.2fms (%d rows)", float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.InvalidInput("Excel file must have at least a header row and one data row")
	}

	return r.processRows(rows)
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.InvalidInput("failed to read CSV file: %v", err)
	}
	log.Printf("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, errors.InvalidInput("CSV file must have at least a header row and one data row")
	}

	return r.processRows(rows)
}

// processRows converts raw string rows into ExcelData format. Every cell must
// be present; missing values are not imputed.
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	seen := make(map[string]bool, len(headerRow))
	for i, header := range headerRow {
		name := strings.TrimSpace(header)
		if name == "" {
			return nil, errors.InvalidInput("header %d is empty", i+1)
		}
		if seen[name] {
			return nil, errors.InvalidInput("duplicate header %q", name)
		}
		seen[name] = true
		headers[i] = name
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) > len(headers) {
			return nil, errors.InvalidInput("row %d has %d cells for %d headers", i+1, len(row), len(headers))
		}
		rowData := make(RawRowData, len(headers))
		for j, header := range headers {
			var cell string
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			if cell == "" {
				return nil, errors.InvalidInput("row %d has no value for %q", i+1, header)
			}
			rowData[header] = cell
		}
		dataRows = append(dataRows, rowData)
	}

	log.Printf("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &ExcelData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

// DetectEntityColumn finds a record identifier column by its name. Only
// columns whose values are all distinct qualify.
func DetectEntityColumn(data *ExcelData) (string, bool) {
	commonEntityColumns := []string{
		"id",
		"record_id",
		"entity_id",
		"candidate_id",
		"applicant_id",
		"user_id",
		"key",
	}

	for _, colName := range commonEntityColumns {
		for _, header := range data.Headers {
			if strings.ToLower(header) == colName && isUniqueColumn(data, header) {
				return header, true
			}
		}
	}
	return "", false
}

func isUniqueColumn(data *ExcelData, columnName string) bool {
	values := make(map[string]bool, len(data.Rows))
	for _, row := range data.Rows {
		v := row[columnName]
		if values[v] {
			return false
		}
		values[v] = true
	}
	return true
}

// InferColumnKinds marks a column numeric when every cell parses as a
// finite number, categorical otherwise.
func InferColumnKinds(data *ExcelData) map[string]ranking.ColumnKind {
	kinds := make(map[string]ranking.ColumnKind, len(data.Headers))
	for _, header := range data.Headers {
		kind := ranking.KindNumeric
		for _, row := range data.Rows {
			if _, err := parseNumber(row[header]); err != nil {
				kind = ranking.KindCategorical
				break
			}
		}
		kinds[header] = kind
	}
	return kinds
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", s)
	}
	return v, nil
}
