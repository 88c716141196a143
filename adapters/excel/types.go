package excel

// RawRowData represents a row of raw cell text keyed by header
type RawRowData map[string]string

// RawData represents a sheet or CSV file before type inference
type RawData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}
