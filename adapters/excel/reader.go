package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"surveystats/domain/core"
	"surveystats/domain/survey"
	"surveystats/internal"
	"surveystats/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files into observation tables
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	config   ReaderConfig
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, config ReaderConfig) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := ""
	switch ext {
	case ".csv":
		fileType = "csv"
	case ".xlsx", ".xlsm":
		fileType = "xlsx"
	}
	if config.Sheet == "" {
		config.Sheet = "Sheet1"
	}
	return &DataReader{filePath: filePath, fileType: fileType, config: config, logger: internal.DefaultLogger}
}

// WithLogger replaces the reader's logger
func (r *DataReader) WithLogger(logger *internal.Logger) *DataReader {
	r.logger = logger
	return r
}

// ReadTable reads the file and infers column types
func (r *DataReader) ReadTable(ctx context.Context) (*survey.Table, error) {
	raw, err := r.ReadData(ctx)
	if err != nil {
		return nil, err
	}
	return r.BuildTable(raw)
}

// ReadData reads data from Excel or CSV files into raw text rows
func (r *DataReader) ReadData(ctx context.Context) (*RawData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.InvalidInput(fmt.Sprintf("input file not found: %s", r.filePath))
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, errors.UnsupportedFile(r.filePath)
	}
}

// readExcelData reads the configured sheet using raw (unformatted) cell values
func (r *DataReader) readExcelData() (*RawData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	rows, err := f.GetRows(r.config.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", r.config.Sheet)
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", r.config.Sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// readCSVData reads CSV data into raw text rows
func (r *DataReader) readCSVData() (*RawData, error) {
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
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	r.logger.Debug("[DataReader] CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	return r.processRows(rows)
}

// processRows converts raw string rows into RawData. Short rows are padded
// with empty (missing) cells.
func (r *DataReader) processRows(rows [][]string) (*RawData, error) {
	if len(rows) == 0 {
		return nil, errors.InvalidInput("file must have a header row")
	}

	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	seen := make(map[string]bool, len(headerRow))
	for i, header := range headerRow {
		h := strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
		if h == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("header %d is empty", i+1))
		}
		if seen[h] {
			return nil, errors.InvalidInput(fmt.Sprintf("duplicate header %q", h))
		}
		seen[h] = true
		headers[i] = h
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		rowData := make(RawRowData, len(headers))
		for j, header := range headers {
			if j < len(row) {
				rowData[header] = strings.TrimSpace(row[j])
			} else {
				rowData[header] = ""
			}
		}
		dataRows = append(dataRows, rowData)
	}

	r.logger.Info("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &RawData{Headers: headers, Rows: dataRows}, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// BuildTable infers column kinds: a column is numeric when every present
// cell parses as a float, otherwise categorical. Columns with no present
// cells are numeric. Numeric columns must be finite.
func (r *DataReader) BuildTable(raw *RawData) (*survey.Table, error) {
	missing := make(map[string]bool, len(r.config.MissingTokens))
	for _, tok := range r.config.MissingTokens {
		missing[tok] = true
	}
	forced := make(map[string]bool, len(r.config.Categorical))
	for _, c := range r.config.Categorical {
		forced[c] = true
	}

	table := survey.NewTable(len(raw.Rows))
	for _, header := range raw.Headers {
		cells := make([]string, len(raw.Rows))
		for i, row := range raw.Rows {
			cells[i] = row[header]
		}

		if !forced[header] {
			nums, ok, err := parseNumeric(header, cells, missing)
			if err != nil {
				return nil, err
			}
			if ok {
				if err := table.AddNumeric(header, nums); err != nil {
					return nil, err
				}
				continue
			}
		}
		cats := make([]survey.Category, len(cells))
		for i, c := range cells {
			if !missing[c] {
				cats[i] = survey.Cat(c)
			}
		}
		if err := table.AddCategorical(header, cats); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// parseNumeric reports ok=false when any present cell is not a number, so
// text columns stay categorical. A numeric column holding ±Inf or NaN is
// rejected, including literals that overflow float64.
func parseNumeric(header string, cells []string, missing map[string]bool) ([]survey.Number, bool, error) {
	nums := make([]survey.Number, len(cells))
	for i, c := range cells {
		if missing[c] {
			continue
		}
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			if numErr, ok := err.(*strconv.NumError); !ok || numErr.Err != strconv.ErrRange {
				return nil, false, nil
			}
		}
		nums[i] = survey.Num(v)
	}
	for i, n := range nums {
		if n.Valid && (math.IsInf(n.Value, 0) || math.IsNaN(n.Value)) {
			return nil, true, core.NewNonFiniteError(header, i, n.Value)
		}
	}
	return nums, true, nil
}
