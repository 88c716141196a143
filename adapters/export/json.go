package export

import (
	"context"
	"encoding/json"
	"io"

	"surveystats/domain/survey"
)

// JSONSink writes results as an indented JSON array.
type JSONSink struct {
	Path string
}

// NewJSONSink creates a JSON sink for path.
func NewJSONSink(path string) *JSONSink {
	return &JSONSink{Path: path}
}

func (s *JSONSink) WriteSummary(ctx context.Context, rows []survey.SummaryRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rows == nil {
		rows = []survey.SummaryRow{}
	}
	return s.write(rows)
}

func (s *JSONSink) WriteCrosstab(ctx context.Context, cells []survey.CrosstabCell) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cells == nil {
		cells = []survey.CrosstabCell{}
	}
	return s.write(cells)
}

func (s *JSONSink) write(v interface{}) error {
	// Encode before touching the filesystem so an unencodable value leaves
	// no temp file behind.
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return WriteAtomic(s.Path, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	})
}
