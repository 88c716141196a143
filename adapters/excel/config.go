package excel

// ReaderConfig controls how raw cells become a typed observation table
type ReaderConfig struct {
	// Sheet is the XLSX sheet to read; ignored for CSV.
	Sheet string `json:"sheet" yaml:"sheet"`
	// MissingTokens are cell contents (after trimming) read as missing.
	MissingTokens []string `json:"missing_tokens" yaml:"missing_tokens"`
	// Categorical forces the named columns to be categorical even when every
	// cell parses as a number (e.g. zero-padded area codes).
	Categorical []string `json:"categorical,omitempty" yaml:"categorical,omitempty"`
}

// DefaultReaderConfig returns sensible defaults for survey extracts
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Sheet:         "Sheet1",
		MissingTokens: []string{"", "NA", "N/A", "NaN", "."},
	}
}
