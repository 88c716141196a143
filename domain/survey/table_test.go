package survey

import (
	"math"
	"testing"

	"surveystats/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl := NewTable(3)
	require.NoError(t, tbl.AddNumeric("w", Nums(1, 2, 3)))
	require.NoError(t, tbl.AddNumeric("region_code", []Number{Num(1), Num(2.5), Missing()}))
	require.NoError(t, tbl.AddCategorical("region", []Category{Cat("north"), {}, Cat("south")}))
	return tbl
}

func TestTable_ColumnAccess(t *testing.T) {
	tbl := sampleTable(t)

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"w", "region_code", "region"}, tbl.Columns())
	assert.True(t, tbl.Has("region"))
	assert.False(t, tbl.Has("age"))
	assert.Equal(t, KindNumeric, tbl.Kind("w"))
	assert.Equal(t, KindCategorical, tbl.Kind("region"))

	_, err := tbl.Numeric("age")
	assert.ErrorIs(t, err, core.ErrMissingColumn)
	assert.Contains(t, err.Error(), `"age"`)

	_, err = tbl.Numeric("region")
	assert.ErrorIs(t, err, core.ErrNonNumericColumn)
}

func TestTable_NumericReadAsCategory(t *testing.T) {
	tbl := sampleTable(t)

	cats, err := tbl.Categorical("region_code")
	require.NoError(t, err)
	assert.Equal(t, []Category{Cat("1"), Cat("2.5"), {}}, cats)
}

func TestTable_ReplaceKeepsOrder(t *testing.T) {
	tbl := sampleTable(t)
	require.NoError(t, tbl.AddCategorical("w", Cats("a", "b", "c")))

	assert.Equal(t, []string{"w", "region_code", "region"}, tbl.Columns())
	assert.Equal(t, KindCategorical, tbl.Kind("w"))
}

func TestTable_LengthMismatch(t *testing.T) {
	tbl := NewTable(2)
	assert.Error(t, tbl.AddNumeric("x", Nums(1, 2, 3)))
	assert.Error(t, tbl.AddNumeric("", Nums(1, 2)))
}

func TestTable_Row(t *testing.T) {
	tbl := sampleTable(t)
	assert.Equal(t, map[string]string{"w": "3", "region_code": "", "region": "south"}, tbl.Row(2))
}

func TestNumTreatsNaNAsMissing(t *testing.T) {
	assert.False(t, Num(math.NaN()).Valid)
	assert.True(t, Num(0).Valid)
}

func TestColumnRoles_Validate(t *testing.T) {
	tbl := sampleTable(t)

	ok := ColumnRoles{Weight: "w", Indicators: []string{"region_code"}, GroupBy: []string{"region"}}
	assert.NoError(t, ok.Validate(tbl))

	assert.ErrorIs(t, ColumnRoles{Indicators: []string{"region_code"}}.Validate(tbl), core.ErrInvalidRoles)
	assert.ErrorIs(t, ColumnRoles{Weight: "w"}.Validate(tbl), core.ErrInvalidRoles)
	assert.ErrorIs(t, ColumnRoles{Weight: "wt", Indicators: []string{"region_code"}}.Validate(tbl), core.ErrMissingColumn)
	assert.ErrorIs(t, ColumnRoles{Weight: "w", Indicators: []string{"region"}}.Validate(tbl), core.ErrNonNumericColumn)
	assert.ErrorIs(t, ColumnRoles{Weight: "w", Indicators: []string{"region_code"}, GroupBy: []string{"zone"}}.Validate(tbl), core.ErrMissingColumn)

	dup := ColumnRoles{Weight: "w", Indicators: []string{"region_code", "region_code"}}
	assert.ErrorIs(t, dup.Validate(tbl), core.ErrInvalidRoles)
}

func TestGroupKeyString(t *testing.T) {
	assert.Equal(t, "", GroupKey(nil).String())
	assert.Equal(t, "north | urban", GroupKey{"north", "urban"}.String())
}
