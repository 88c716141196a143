package ports

// SEEstimator computes the standard error of a weighted mean from the
// already filtered values and their weights. values and weights have equal
// length, contain no missing entries, and mean is Σwv/Σw over them.
//
// Implementations swap in other variance formulas (stratified, clustered)
// without changing the aggregator's contract.
type SEEstimator interface {
	Name() string
	StandardError(values, weights []float64, mean float64) float64
}
