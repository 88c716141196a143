package weighted

import (
	"fmt"

	"surveystats/domain/core"
	"surveystats/domain/survey"
)

// WeightDiagnostics describes a weight column: how many weights are
// present, their total, Kish's effective sample size and the design effect.
type WeightDiagnostics struct {
	N            int
	Sum          float64
	EffectiveN   float64
	DesignEffect float64
}

// DiagnoseWeights computes n_eff = (Σw)² / Σw² and deff = n / n_eff over the
// present weights. Equal weights give n_eff = n and deff = 1 exactly.
// Weights are scaled by their maximum before squaring so large weights do
// not overflow.
func DiagnoseWeights(weights []survey.Number) (WeightDiagnostics, error) {
	var d WeightDiagnostics
	var first, top float64
	equal := true
	for i, w := range weights {
		if !w.Valid {
			continue
		}
		if !isFinite(w.Value) {
			return WeightDiagnostics{}, fmt.Errorf("%w: weight at position %d: %g", core.ErrNonFiniteValue, i, w.Value)
		}
		if w.Value <= 0 {
			return WeightDiagnostics{}, fmt.Errorf("%w at position %d: %g", core.ErrNonPositiveWeight, i, w.Value)
		}
		if d.N == 0 {
			first = w.Value
		} else if w.Value != first {
			equal = false
		}
		if w.Value > top {
			top = w.Value
		}
		d.Sum += w.Value
		d.N++
	}
	if d.N == 0 {
		return WeightDiagnostics{}, core.ErrEmptyInput
	}
	if !isFinite(d.Sum) {
		return WeightDiagnostics{}, fmt.Errorf("%w: weight total overflows", core.ErrNonFiniteValue)
	}

	if equal {
		d.EffectiveN = float64(d.N)
		d.DesignEffect = 1
		return d, nil
	}
	var s, s2 float64
	for _, w := range weights {
		if w.Valid {
			v := w.Value / top
			s += v
			s2 += v * v
		}
	}
	d.EffectiveN = s * s / s2
	d.DesignEffect = float64(d.N) / d.EffectiveN
	return d, nil
}

// EffectiveSampleSize returns Kish's n_eff = (Σw)² / Σw² over the present
// weights, together with the count of present weights.
func EffectiveSampleSize(weights []survey.Number) (nEff float64, n int, err error) {
	d, err := DiagnoseWeights(weights)
	if err != nil {
		return 0, 0, err
	}
	return d.EffectiveN, d.N, nil
}

// DesignEffect returns n / n_eff, the variance inflation implied by unequal
// weighting alone. Stratification and clustering are not reflected.
func DesignEffect(weights []survey.Number) (float64, error) {
	d, err := DiagnoseWeights(weights)
	if err != nil {
		return 0, err
	}
	return d.DesignEffect, nil
}
