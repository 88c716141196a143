package export

import (
	"context"
	"encoding/csv"
	"io"

	"surveystats/domain/survey"
)

// CSVSink writes summary rows or crosstab cells to a CSV file.
type CSVSink struct {
	Path string
}

// NewCSVSink creates a CSV sink for path.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{Path: path}
}

func (s *CSVSink) WriteSummary(ctx context.Context, rows []survey.SummaryRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(SummaryHeader(rows), SummaryRecords(rows))
}

func (s *CSVSink) WriteCrosstab(ctx context.Context, cells []survey.CrosstabCell) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(CrosstabHeader, CrosstabRecords(cells))
}

func (s *CSVSink) write(header []string, records [][]string) error {
	return WriteAtomic(s.Path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(records); err != nil {
			return err
		}
		return cw.Error()
	})
}
