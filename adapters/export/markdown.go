package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"surveystats/domain/survey"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Report collects result tables into a Markdown document that can also be
// rendered as a standalone HTML page.
type Report struct {
	Title string
	buf   bytes.Buffer
}

// NewReport creates an empty report.
func NewReport(title string) *Report {
	r := &Report{Title: title}
	if title != "" {
		fmt.Fprintf(&r.buf, "# %s\n\n", title)
	}
	return r
}

// AddSummary appends a section with a summary table.
func (r *Report) AddSummary(heading string, rows []survey.SummaryRow) {
	r.addTable(heading, SummaryHeader(rows), SummaryRecords(rows))
}

// AddCrosstab appends a section with a crosstab table.
func (r *Report) AddCrosstab(heading string, cells []survey.CrosstabCell) {
	r.addTable(heading, CrosstabHeader, CrosstabRecords(cells))
}

// AddNote appends a paragraph.
func (r *Report) AddNote(text string) {
	fmt.Fprintf(&r.buf, "%s\n\n", text)
}

func (r *Report) addTable(heading string, header []string, records [][]string) {
	if heading != "" {
		fmt.Fprintf(&r.buf, "## %s\n\n", heading)
	}
	writeRow(&r.buf, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&r.buf, sep)
	for _, rec := range records {
		writeRow(&r.buf, rec)
	}
	r.buf.WriteString("\n")
}

func writeRow(buf *bytes.Buffer, cells []string) {
	buf.WriteString("|")
	for _, c := range cells {
		buf.WriteString(" ")
		buf.WriteString(escapeCell(c))
		buf.WriteString(" |")
	}
	buf.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// Markdown returns the report source.
func (r *Report) Markdown() []byte {
	return bytes.Clone(r.buf.Bytes())
}

// HTML renders the report as a complete HTML page.
func (r *Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: r.Title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(r.Markdown(), p, renderer)
}

// WriteMarkdown atomically writes the Markdown source to path.
func (r *Report) WriteMarkdown(path string) error {
	return writeBytes(path, r.Markdown())
}

// WriteHTML atomically writes the rendered page to path.
func (r *Report) WriteHTML(path string) error {
	return writeBytes(path, r.HTML())
}

func writeBytes(path string, data []byte) error {
	return WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// MarkdownSink writes a single-table report as Markdown, or as HTML when
// HTML is set.
type MarkdownSink struct {
	Path  string
	Title string
	HTML  bool
}

// NewMarkdownSink creates a Markdown sink for path.
func NewMarkdownSink(path, title string) *MarkdownSink {
	return &MarkdownSink{Path: path, Title: title}
}

// NewHTMLSink creates a sink rendering the report to an HTML page.
func NewHTMLSink(path, title string) *MarkdownSink {
	return &MarkdownSink{Path: path, Title: title, HTML: true}
}

func (s *MarkdownSink) WriteSummary(ctx context.Context, rows []survey.SummaryRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := NewReport(s.Title)
	r.AddSummary("", rows)
	return s.flush(r)
}

func (s *MarkdownSink) WriteCrosstab(ctx context.Context, cells []survey.CrosstabCell) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r := NewReport(s.Title)
	r.AddCrosstab("", cells)
	return s.flush(r)
}

func (s *MarkdownSink) flush(r *Report) error {
	if s.HTML {
		return r.WriteHTML(s.Path)
	}
	return r.WriteMarkdown(s.Path)
}
