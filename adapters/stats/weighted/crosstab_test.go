package weighted

import (
	"math"
	"testing"

	"surveystats/domain/core"
	"surveystats/domain/survey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// abxyTable yields raw means A-X=10, A-Y=30, B-X=20, B-Y=20 with uneven weights.
func abxyTable(t *testing.T) *survey.Table {
	t.Helper()
	tbl := survey.NewTable(7)
	require.NoError(t, tbl.AddCategorical("grp", survey.Cats("A", "A", "A", "B", "B", "B", "B")))
	require.NoError(t, tbl.AddCategorical("arm", survey.Cats("X", "X", "Y", "X", "Y", "Y", "X")))
	require.NoError(t, tbl.AddNumeric("val", survey.Nums(5, 20, 30, 20, 10, 40, 20)))
	require.NoError(t, tbl.AddNumeric("w", survey.Nums(2, 1, 1, 1, 2, 1, 3)))
	return tbl
}

func cellMap(cells []survey.CrosstabCell) map[string]float64 {
	out := make(map[string]float64, len(cells))
	for _, c := range cells {
		out[c.Row+"-"+c.Col] = c.Value
	}
	return out
}

func TestCrosstab_RawMeans(t *testing.T) {
	cells, err := Crosstab(abxyTable(t), CrosstabSpec{Row: "grp", Col: "arm", Value: "val", Weight: "w"})
	require.NoError(t, err)
	require.Len(t, cells, 4)

	assert.Equal(t, "A", cells[0].Row)
	assert.Equal(t, "X", cells[0].Col)
	assert.Equal(t, 2, cells[0].N)

	got := cellMap(cells)
	assert.InDelta(t, 10.0, got["A-X"], 1e-12)
	assert.InDelta(t, 30.0, got["A-Y"], 1e-12)
	assert.InDelta(t, 20.0, got["B-X"], 1e-12)
	assert.InDelta(t, 20.0, got["B-Y"], 1e-12)
}

// TestCrosstab_RowNormalization covers the A/B x X/Y scenario
func TestCrosstab_RowNormalization(t *testing.T) {
	cells, err := Crosstab(abxyTable(t), CrosstabSpec{Row: "grp", Col: "arm", Value: "val", Weight: "w", Normalize: survey.NormalizeRow})
	require.NoError(t, err)

	got := cellMap(cells)
	assert.InDelta(t, 0.25, got["A-X"], 1e-12)
	assert.InDelta(t, 0.75, got["A-Y"], 1e-12)
	assert.InDelta(t, 0.5, got["B-X"], 1e-12)
	assert.InDelta(t, 0.5, got["B-Y"], 1e-12)

	sums := map[string]float64{}
	for _, c := range cells {
		sums[c.Row] += c.Value
	}
	for row, s := range sums {
		assert.InDelta(t, 1.0, s, 1e-12, "row %s", row)
	}

	// raw mean kept alongside the normalised value
	assert.InDelta(t, 10.0, cells[0].WeightedMean, 1e-12)
}

func TestCrosstab_ColNormalization(t *testing.T) {
	cells, err := Crosstab(abxyTable(t), CrosstabSpec{Row: "grp", Col: "arm", Value: "val", Weight: "w", Normalize: survey.NormalizeCol})
	require.NoError(t, err)

	sums := map[string]float64{}
	for _, c := range cells {
		sums[c.Col] += c.Value
	}
	require.Len(t, sums, 2)
	for col, s := range sums {
		assert.InDelta(t, 1.0, s, 1e-12, "col %s", col)
	}
	got := cellMap(cells)
	assert.InDelta(t, 10.0/30.0, got["A-X"], 1e-12)
	assert.InDelta(t, 0.6, got["A-Y"], 1e-12)
}

func TestCrosstab_AllNormalization(t *testing.T) {
	cells, err := Crosstab(abxyTable(t), CrosstabSpec{Row: "grp", Col: "arm", Value: "val", Weight: "w", Normalize: survey.NormalizeAll})
	require.NoError(t, err)

	var total float64
	for _, c := range cells {
		total += c.Value
	}
	assert.InDelta(t, 1.0, total, 1e-12)
	assert.InDelta(t, 10.0/80.0, cellMap(cells)["A-X"], 1e-12)
}

func TestCrosstab_DropsIncompleteRecords(t *testing.T) {
	tbl := survey.NewTable(4)
	require.NoError(t, tbl.AddCategorical("r", []survey.Category{survey.Cat("a"), {}, survey.Cat("a"), survey.Cat("a")}))
	require.NoError(t, tbl.AddCategorical("c", []survey.Category{survey.Cat("x"), survey.Cat("x"), {}, survey.Cat("x")}))
	require.NoError(t, tbl.AddNumeric("v", []survey.Number{survey.Num(1), survey.Num(5), survey.Num(5), survey.Missing()}))
	require.NoError(t, tbl.AddNumeric("w", survey.Nums(1, 1, 1, 1)))

	cells, err := Crosstab(tbl, CrosstabSpec{Row: "r", Col: "c", Value: "v", Weight: "w"})
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, 1, cells[0].N)
	assert.Equal(t, 1.0, cells[0].Value)
}

func TestCrosstab_Errors(t *testing.T) {
	tbl := abxyTable(t)

	_, err := Crosstab(tbl, CrosstabSpec{Row: "grp", Col: "arm", Value: "val", Weight: "w", Normalize: "rows"})
	assert.ErrorIs(t, err, core.ErrInvalidNormalizeMode)

	_, err = Crosstab(tbl, CrosstabSpec{Row: "grp", Col: "zone", Value: "val", Weight: "w"})
	assert.ErrorIs(t, err, core.ErrMissingColumn)

	_, err = Crosstab(tbl, CrosstabSpec{Row: "grp", Col: "arm", Value: "arm", Weight: "w"})
	assert.ErrorIs(t, err, core.ErrNonNumericColumn)

	zero := survey.NewTable(2)
	require.NoError(t, zero.AddCategorical("r", survey.Cats("a", "b")))
	require.NoError(t, zero.AddCategorical("c", survey.Cats("x", "x")))
	require.NoError(t, zero.AddNumeric("v", survey.Nums(0, 3)))
	require.NoError(t, zero.AddNumeric("w", survey.Nums(1, 1)))

	_, err = Crosstab(zero, CrosstabSpec{Row: "r", Col: "c", Value: "v", Weight: "w", Normalize: survey.NormalizeRow})
	require.ErrorIs(t, err, core.ErrZeroNormalizationBase)
	assert.Contains(t, err.Error(), `"a"`)

	// column x sums to 3, so col normalisation is fine
	cells, err := Crosstab(zero, CrosstabSpec{Row: "r", Col: "c", Value: "v", Weight: "w", Normalize: survey.NormalizeCol})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cells[1].Value, 1e-12)
}

func TestParseNormalizeMode(t *testing.T) {
	cases := map[string]survey.NormalizeMode{
		"":     survey.NormalizeNone,
		"none": survey.NormalizeNone,
		"all":  survey.NormalizeAll,
		"row":  survey.NormalizeRow,
		"col":  survey.NormalizeCol,
	}
	for in, want := range cases {
		got, err := ParseNormalizeMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"ALL", " row", "Col", "NONE", "column"} {
		_, err := ParseNormalizeMode(in)
		assert.ErrorIs(t, err, core.ErrInvalidNormalizeMode, in)
	}
}

func TestCrosstab_NormalizeModeIsCaseSensitive(t *testing.T) {
	_, err := Crosstab(abxyTable(t), CrosstabSpec{Row: "grp", Col: "arm", Value: "val", Weight: "w", Normalize: "ROW"})
	assert.ErrorIs(t, err, core.ErrInvalidNormalizeMode)
}

func TestCrosstab_NonFiniteValues(t *testing.T) {
	tbl := survey.NewTable(3)
	require.NoError(t, tbl.AddCategorical("r", survey.Cats("a", "a", "b")))
	require.NoError(t, tbl.AddCategorical("c", survey.Cats("x", "x", "x")))
	require.NoError(t, tbl.AddNumeric("v", survey.Nums(1, math.Inf(1), 2)))
	require.NoError(t, tbl.AddNumeric("w", survey.Nums(1, 1, 1)))

	_, err := Crosstab(tbl, CrosstabSpec{Row: "r", Col: "c", Value: "v", Weight: "w"})
	assert.ErrorIs(t, err, core.ErrNonFiniteValue)

	big := survey.NewTable(2)
	require.NoError(t, big.AddCategorical("r", survey.Cats("a", "a")))
	require.NoError(t, big.AddCategorical("c", survey.Cats("x", "x")))
	require.NoError(t, big.AddNumeric("v", survey.Nums(1e308, 1e308)))
	require.NoError(t, big.AddNumeric("w", survey.Nums(1, 1)))

	_, err = Crosstab(big, CrosstabSpec{Row: "r", Col: "c", Value: "v", Weight: "w"})
	require.ErrorIs(t, err, core.ErrNonFiniteValue)
	assert.Contains(t, err.Error(), "weighted mean")
}
