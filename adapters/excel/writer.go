package excel

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"surveystats/adapters/export"
	"surveystats/domain/survey"

	"github.com/xuri/excelize/v2"
)

// Writer writes results to an XLSX workbook. Numeric fields are stored as
// numbers so the sheet stays usable for further analysis.
type Writer struct {
	path  string
	sheet string
}

// NewWriter creates an XLSX writer; an empty sheet name selects "Results".
func NewWriter(path, sheet string) *Writer {
	if sheet == "" {
		sheet = "Results"
	}
	return &Writer{path: path, sheet: sheet}
}

func (w *Writer) WriteSummary(ctx context.Context, rows []survey.SummaryRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.write(export.SummaryHeader(rows), export.SummaryRecords(rows))
}

func (w *Writer) WriteCrosstab(ctx context.Context, cells []survey.CrosstabCell) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.write(export.CrosstabHeader, export.CrosstabRecords(cells))
}

func (w *Writer) write(header []string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", w.sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(w.sheet, "A1", toCells(header, false)); err != nil {
		return err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(w.sheet, cell, toCells(rec, true)); err != nil {
			return err
		}
	}

	return export.WriteAtomic(w.path, func(out io.Writer) error {
		_, err := f.WriteTo(out)
		return err
	})
}

// toCells converts a string record into sheet values. Numeric-looking
// fields become float64 when numeric is set; booleans stay text.
func toCells(rec []string, numeric bool) *[]interface{} {
	cells := make([]interface{}, len(rec))
	for i, s := range rec {
		cells[i] = s
		if !numeric || s == "" {
			continue
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			cells[i] = v
		}
	}
	return &cells
}
