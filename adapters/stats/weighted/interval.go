package weighted

import (
	"fmt"

	"surveystats/domain/core"
	"surveystats/domain/survey"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfidenceLevel is used when callers do not choose a level.
const DefaultConfidenceLevel = 0.95

// ZScore returns the two-sided standard normal multiplier z with
// P(-z <= Z <= z) = level.
func ZScore(level float64) (float64, error) {
	if !(level > 0 && level < 1) {
		return 0, fmt.Errorf("%w: got %g", core.ErrInvalidLevel, level)
	}
	return distuv.UnitNormal.Quantile(1 - (1-level)/2), nil
}

// ConfidenceInterval returns the symmetric normal-approximation interval
// mean ± z·se. No t-distribution or finite population correction is applied,
// so small groups get intervals that are too narrow.
func ConfidenceInterval(mean, se, level float64) (lower, upper float64, err error) {
	z, err := ZScore(level)
	if err != nil {
		return 0, 0, err
	}
	return mean - z*se, mean + z*se, nil
}

// WithConfidenceIntervals returns a copy of rows with CI set at level.
func WithConfidenceIntervals(rows []survey.SummaryRow, level float64) ([]survey.SummaryRow, error) {
	z, err := ZScore(level)
	if err != nil {
		return nil, err
	}
	out := make([]survey.SummaryRow, len(rows))
	for i, r := range rows {
		r.CI = &survey.Interval{
			Level: level,
			Lower: r.WeightedMean - z*r.SE,
			Upper: r.WeightedMean + z*r.SE,
		}
		out[i] = r
	}
	return out, nil
}
