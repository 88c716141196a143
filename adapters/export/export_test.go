package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"surveystats/domain/survey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []survey.SummaryRow {
	small := true
	return []survey.SummaryRow{
		{
			Indicator:      "literate",
			GroupColumns:   []string{"region"},
			Group:          survey.GroupKey{"north"},
			WeightedMean:   0.5,
			SE:             0.1,
			WeightedMedian: 1,
			N:              12,
			TotalWeight:    24,
			CI:             &survey.Interval{Level: 0.95, Lower: 0.3, Upper: 0.7},
			SmallSample:    &small,
		},
		{
			Indicator:    "literate",
			GroupColumns: []string{"region"},
			Group:        survey.GroupKey{"south"},
			WeightedMean: 0.25,
			N:            40,
			TotalWeight:  80,
		},
	}
}

func sampleCells() []survey.CrosstabCell {
	return []survey.CrosstabCell{
		{Row: "A", Col: "X", Value: 0.25, WeightedMean: 10, N: 3},
		{Row: "A", Col: "Y", Value: 0.75, WeightedMean: 30, N: 2},
	}
}

func TestSummaryRecords(t *testing.T) {
	rows := sampleRows()
	assert.Equal(t, []string{
		"indicator", "region", "weighted_mean", "se", "weighted_median", "n", "total_weight",
		"ci_level", "ci_lower", "ci_upper", "small_sample",
	}, SummaryHeader(rows))

	records := SummaryRecords(rows)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"literate", "north", "0.5", "0.1", "1", "12", "24", "0.95", "0.3", "0.7", "true"}, records[0])
	assert.Equal(t, []string{"literate", "south", "0.25", "0", "0", "40", "80", "", "", "", ""}, records[1])
}

func TestSummaryHeader_NoOptionalFields(t *testing.T) {
	rows := []survey.SummaryRow{{Indicator: "x", N: 3, TotalWeight: 3}}
	assert.Equal(t, []string{"indicator", "weighted_mean", "se", "weighted_median", "n", "total_weight"}, SummaryHeader(rows))
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "summary.csv")
	require.NoError(t, NewCSVSink(path).WriteSummary(context.Background(), sampleRows()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "indicator", records[0][0])
	assert.Equal(t, "south", records[2][1])
}

func TestCSVSink_Crosstab(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xtab.csv")
	require.NoError(t, NewCSVSink(path).WriteCrosstab(context.Background(), sampleCells()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "row,col,value,weighted_mean,n\nA,X,0.25,10,3\nA,Y,0.75,30,2\n", string(data))
}

func TestJSONSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, NewJSONSink(path).WriteSummary(context.Background(), sampleRows()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []survey.SummaryRow
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	assert.True(t, got[0].IsSmallSample())
	assert.Nil(t, got[1].CI)

	require.NoError(t, NewJSONSink(path).WriteCrosstab(context.Background(), nil))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteAtomic_KeepsPreviousOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	boom := errors.New("boom")
	err := WriteAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	require.ErrorIs(t, err, boom)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be removed")
}

func TestSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "x.csv")
	assert.ErrorIs(t, NewCSVSink(path).WriteSummary(ctx, sampleRows()), context.Canceled)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReport(t *testing.T) {
	r := NewReport("Literacy")
	r.AddSummary("By region", sampleRows())
	r.AddCrosstab("Sex by area", sampleCells())
	r.AddNote("Estimates use the normal approximation.")

	md := string(r.Markdown())
	assert.True(t, strings.HasPrefix(md, "# Literacy\n"))
	assert.Contains(t, md, "## By region")
	assert.Contains(t, md, "| literate | north | 0.5 |")
	assert.Contains(t, md, "| A | Y | 0.75 | 30 | 2 |")

	page := string(r.HTML())
	assert.Contains(t, page, "<title>Literacy</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<td>north</td>")
}

func TestEscapeCell(t *testing.T) {
	assert.Equal(t, `a\|b c`, escapeCell("a|b\nc"))
}

func TestHTMLSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, NewHTMLSink(path, "Crosstab").WriteCrosstab(context.Background(), sampleCells()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<td>0.75</td>")

	mdPath := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, NewMarkdownSink(mdPath, "").WriteCrosstab(context.Background(), sampleCells()))
	data, err = os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "| row | col |"))
}
