package weighted

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Median returns the lowest value at which the cumulative weight first
// reaches half of the total weight. Inputs are not modified.
func Median(values, weights []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	x := make([]float64, len(values))
	w := make([]float64, len(weights))
	copy(x, values)
	copy(w, weights)
	stat.SortWeighted(x, w)
	return stat.Quantile(0.5, stat.Empirical, x, w)
}
