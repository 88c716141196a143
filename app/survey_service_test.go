package app

import (
	"context"
	"math"
	"testing"

	"surveystats/adapters/stats/weighted"
	"surveystats/domain/core"
	"surveystats/domain/survey"
	"surveystats/internal"
	"surveystats/internal/config"
	"surveystats/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietService() *SurveyService {
	return NewSurveyService(ServiceOptions{Logger: internal.NewLogger(internal.LogLevelError)})
}

func halfOnes(n int) []float64 {
	values := make([]float64, n)
	for i := 0; i < n/2; i++ {
		values[i] = 1
	}
	return values
}

func TestNational(t *testing.T) {
	table := testkit.ConstantWeights(2, halfOnes(100)...)

	rows, err := quietService().National(context.Background(), table, "w", []string{"x"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.InDelta(t, 0.5, row.WeightedMean, 1e-12)
	assert.Equal(t, 100, row.N)
	assert.InDelta(t, 200, row.TotalWeight, 1e-12)
	require.NotNil(t, row.CI)
	assert.Equal(t, 0.95, row.CI.Level)
	assert.InDelta(t, row.WeightedMean-1.959963984540054*row.SE, row.CI.Lower, 1e-9)
	require.NotNil(t, row.SmallSample)
	assert.False(t, *row.SmallSample)
}

func TestSubnational_FlagsSmallSamples(t *testing.T) {
	n := 59
	table := survey.NewTable(n)
	regions := make([]survey.Category, n)
	areas := make([]survey.Category, n)
	values := make([]float64, n)
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < 29 {
			regions[i] = survey.Cat("north")
		} else {
			regions[i] = survey.Cat("south")
		}
		areas[i] = survey.Cat("urban")
		values[i] = float64(i % 2)
		weights[i] = 1
	}
	require.NoError(t, table.AddCategorical("region", regions))
	require.NoError(t, table.AddCategorical("area", areas))
	require.NoError(t, table.AddNumeric("w", survey.Nums(weights...)))
	require.NoError(t, table.AddNumeric("x", survey.Nums(values...)))

	svc := quietService()
	rows, err := svc.Subnational(context.Background(), table, "w", []string{"x"}, "region")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, survey.GroupKey{"north"}, rows[0].Group)
	assert.Equal(t, 29, rows[0].N)
	assert.True(t, rows[0].IsSmallSample())
	assert.Equal(t, 30, rows[1].N)
	assert.False(t, rows[1].IsSmallSample())

	rows, err = svc.Subnational(context.Background(), table, "w", []string{"x"}, "region", "area")
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "area"}, rows[0].GroupColumns)
	assert.Equal(t, survey.GroupKey{"south", "urban"}, rows[1].Group)
}

func TestSummarize_Options(t *testing.T) {
	table := testkit.ConstantWeights(1, 1, 2, 3, 4)
	svc := quietService()
	roles := survey.ColumnRoles{Weight: "w", Indicators: []string{"x"}}

	rows, err := svc.Summarize(context.Background(), table, SummaryRequest{Roles: roles, SkipIntervals: true, MinN: 3})
	require.NoError(t, err)
	assert.Nil(t, rows[0].CI)
	assert.False(t, rows[0].IsSmallSample())

	rows, err = svc.Summarize(context.Background(), table, SummaryRequest{Roles: roles, ConfidenceLevel: 0.9})
	require.NoError(t, err)
	assert.Equal(t, 0.9, rows[0].CI.Level)
	assert.True(t, rows[0].IsSmallSample())

	_, err = svc.Summarize(context.Background(), table, SummaryRequest{Roles: roles, ConfidenceLevel: 1})
	assert.ErrorIs(t, err, core.ErrInvalidLevel)

	_, err = svc.Summarize(context.Background(), table, SummaryRequest{Roles: survey.ColumnRoles{Weight: "w", Indicators: []string{"nope"}}})
	assert.ErrorIs(t, err, core.ErrMissingColumn)
}

func TestCrosstab(t *testing.T) {
	table := survey.NewTable(4)
	require.NoError(t, table.AddCategorical("r", survey.Cats("A", "A", "B", "B")))
	require.NoError(t, table.AddCategorical("c", survey.Cats("X", "Y", "X", "Y")))
	require.NoError(t, table.AddNumeric("v", survey.Nums(10, 30, 20, 20)))
	require.NoError(t, table.AddNumeric("w", survey.Nums(1, 1, 1, 1)))

	cells, err := quietService().Crosstab(context.Background(), table, weighted.CrosstabSpec{
		Row: "r", Col: "c", Value: "v", Weight: "w", Normalize: survey.NormalizeRow,
	})
	require.NoError(t, err)
	got := make([]float64, len(cells))
	for i, c := range cells {
		got[i] = c.Value
	}
	assert.InDeltaSlice(t, []float64{0.25, 0.75, 0.5, 0.5}, got, 1e-12)
}

func TestDesignEffect(t *testing.T) {
	svc := quietService()
	res, err := svc.DesignEffect(testkit.ConstantWeights(3, 1, 2, 3, 4, 5), "w")
	require.NoError(t, err)
	assert.Equal(t, 5, res.N)
	assert.InDelta(t, 1.0, res.DesignEffect, 1e-12)

	_, err = svc.DesignEffect(testkit.ConstantWeights(3, 1), "nope")
	assert.ErrorIs(t, err, core.ErrMissingColumn)

	table := survey.NewTable(2)
	require.NoError(t, table.AddNumeric("w", survey.Nums(1, 0)))
	_, err = svc.DesignEffect(table, "w")
	assert.ErrorIs(t, err, core.ErrNonPositiveWeight)
}

func TestProfile(t *testing.T) {
	table := testkit.NewSurveyGenerator(testkit.DefaultSurveyConfig()).Generate()
	p, err := quietService().Profile(table, testkit.ColWeight)
	require.NoError(t, err)
	assert.Equal(t, table.Len(), p.Rows)
	assert.Len(t, p.Columns, len(table.Columns()))
	require.NotNil(t, p.Weight)
	assert.Greater(t, p.Weight.DesignEffect, 1.0)
	assert.False(t, math.IsNaN(p.Weight.EffectiveN))
}

func TestNewSurveyServiceFromConfig(t *testing.T) {
	cfg := &config.Config{Analysis: config.AnalysisConfig{MinN: 10, ConfidenceLevel: 0.9, SEEstimator: "kish", Workers: 2}}
	svc, err := NewSurveyServiceFromConfig(cfg, internal.NewLogger(internal.LogLevelError))
	require.NoError(t, err)
	assert.Equal(t, weighted.EstimatorKish, svc.EstimatorName())
	assert.Equal(t, 10, svc.minN)

	cfg.Analysis.SEEstimator = "bootstrap"
	_, err = NewSurveyServiceFromConfig(cfg, nil)
	assert.Error(t, err)
}
