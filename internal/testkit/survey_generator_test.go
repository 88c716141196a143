package testkit

import (
	"os"
	"path/filepath"
	"testing"

	"surveystats/domain/survey"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurveyGenerator_Deterministic(t *testing.T) {
	config := DefaultSurveyConfig()
	config.Respondents = 200

	a := NewSurveyGenerator(config).Generate()
	b := NewSurveyGenerator(config).Generate()
	for i := 0; i < a.Len(); i++ {
		require.Equal(t, a.Row(i), b.Row(i), "row %d", i)
	}
}

func TestSurveyGenerator_Shape(t *testing.T) {
	config := DefaultSurveyConfig()
	config.Respondents = 500
	table := NewSurveyGenerator(config).Generate()

	assert.Equal(t, 500, table.Len())
	assert.Equal(t, []string{ColRegion, ColArea, ColSex, ColAge, ColWeight, ColLiterate, ColEmployed, ColIncome}, table.Columns())

	weights, err := table.Numeric(ColWeight)
	require.NoError(t, err)
	for i, w := range weights {
		require.True(t, w.Valid, "weight %d missing", i)
		require.Greater(t, w.Value, 0.0)
	}

	literate, err := table.Numeric(ColLiterate)
	require.NoError(t, err)
	missing := 0
	for _, v := range literate {
		if !v.Valid {
			missing++
			continue
		}
		assert.Contains(t, []float64{0, 1}, v.Value)
	}
	assert.Greater(t, missing, 0)
	assert.Less(t, missing, 100)
}

func TestWriteCSV(t *testing.T) {
	table := survey.NewTable(2)
	require.NoError(t, table.AddCategorical("region", []survey.Category{survey.Cat("north"), {}}))
	require.NoError(t, table.AddNumeric("x", []survey.Number{survey.Missing(), survey.Num(1.5)}))

	path := filepath.Join(t.TempDir(), "s.csv")
	require.NoError(t, WriteCSV(path, table))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "region,x\nnorth,NA\nNA,1.5\n", string(data))
}

func TestConstantWeights(t *testing.T) {
	table := ConstantWeights(2, 1, 0, 1)
	w, err := table.Numeric("w")
	require.NoError(t, err)
	assert.Equal(t, survey.Nums(2, 2, 2), w)
}
