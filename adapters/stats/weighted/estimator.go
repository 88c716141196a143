package weighted

import (
	"fmt"
	"math"

	"surveystats/ports"

	"gonum.org/v1/gonum/floats"
)

// Estimator names accepted by EstimatorByName.
const (
	EstimatorLinearization = "linearization"
	EstimatorKish          = "kish"
)

// LinearizationSE is the ratio-estimator (Taylor linearisation) standard
// error of a weighted mean under with-replacement sampling of single units:
//
//	se = sqrt(n/(n-1) * Σ (w_i (y_i - ȳ))²) / Σ w_i
//
// A single observation carries no variance information and yields 0.
type LinearizationSE struct{}

func (LinearizationSE) Name() string { return EstimatorLinearization }

func (LinearizationSE) StandardError(values, weights []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	total := floats.Sum(weights)
	if total == 0 {
		return 0
	}
	var ss float64
	for i, v := range values {
		d := weights[i] * (v - mean)
		ss += d * d
	}
	nf := float64(n)
	return math.Sqrt(nf/(nf-1)*ss) / total
}

// KishSE scales the weighted variance by Kish's effective sample size:
//
//	se = sqrt(s²_w * n/(n-1) / n_eff),  s²_w = Σ w (y-ȳ)² / Σ w
type KishSE struct{}

func (KishSE) Name() string { return EstimatorKish }

func (KishSE) StandardError(values, weights []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	total := floats.Sum(weights)
	if total == 0 {
		return 0
	}
	var sw2, ss float64
	for i, v := range values {
		d := v - mean
		ss += weights[i] * d * d
		sw2 += weights[i] * weights[i]
	}
	nEff := total * total / sw2
	nf := float64(n)
	return math.Sqrt(ss / total * nf / (nf - 1) / nEff)
}

// EstimatorByName resolves a configured estimator name. The empty name
// selects the linearisation estimator.
func EstimatorByName(name string) (ports.SEEstimator, error) {
	switch name {
	case "", EstimatorLinearization:
		return LinearizationSE{}, nil
	case EstimatorKish:
		return KishSE{}, nil
	default:
		return nil, fmt.Errorf("unknown standard error estimator %q (want %s or %s)", name, EstimatorLinearization, EstimatorKish)
	}
}
