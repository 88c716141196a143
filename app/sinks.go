package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"surveystats/adapters/excel"
	"surveystats/adapters/export"
	"surveystats/internal/errors"
	"surveystats/ports"
)

// SinkForPath picks a result sink from the output file extension.
func SinkForPath(path, title string) (ports.ResultSink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return export.NewCSVSink(path), nil
	case ".json":
		return export.NewJSONSink(path), nil
	case ".xlsx":
		return excel.NewWriter(path, ""), nil
	case ".md":
		return export.NewMarkdownSink(path, title), nil
	case ".html", ".htm":
		return export.NewHTMLSink(path, title), nil
	default:
		return nil, errors.UnsupportedFile(path)
	}
}

// SourceForPath opens a CSV or XLSX table source.
func SourceForPath(path string, cfg excel.ReaderConfig) (ports.TableSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx", ".xlsm":
		return excel.NewDataReader(path, cfg), nil
	default:
		return nil, errors.UnsupportedFile(path)
	}
}

func outputTitle(planName, result string) string {
	return fmt.Sprintf("%s: %s", planName, result)
}
