package weighted

import (
	"fmt"

	"surveystats/domain/core"
	"surveystats/domain/survey"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CrosstabSpec names the columns of a two-way weighted breakdown.
type CrosstabSpec struct {
	Row       string               `json:"row" yaml:"row"`
	Col       string               `json:"col" yaml:"col"`
	Value     string               `json:"value" yaml:"value"`
	Weight    string               `json:"weight" yaml:"weight"`
	Normalize survey.NormalizeMode `json:"normalize,omitempty" yaml:"normalize,omitempty"`
}

// ParseNormalizeMode accepts exactly none, all, row and col; the empty
// string is none. Case folding belongs to the caller.
func ParseNormalizeMode(s string) (survey.NormalizeMode, error) {
	switch m := survey.NormalizeMode(s); m {
	case "", survey.NormalizeNone:
		return survey.NormalizeNone, nil
	case survey.NormalizeAll, survey.NormalizeRow, survey.NormalizeCol:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want none, all, row or col)", core.ErrInvalidNormalizeMode, s)
	}
}

type cellKey struct{ row, col string }

// Crosstab computes the weighted mean of spec.Value for every
// (row, col) pair present, in first-seen order, then applies the
// normalisation mode. Records missing the row, column, value or weight are
// dropped.
func Crosstab(table *survey.Table, spec CrosstabSpec) ([]survey.CrosstabCell, error) {
	mode, err := ParseNormalizeMode(string(spec.Normalize))
	if err != nil {
		return nil, err
	}
	rowCol, err := table.Categorical(spec.Row)
	if err != nil {
		return nil, err
	}
	colCol, err := table.Categorical(spec.Col)
	if err != nil {
		return nil, err
	}
	values, err := indicatorValues(table, spec.Value)
	if err != nil {
		return nil, err
	}
	weights, err := table.Numeric(spec.Weight)
	if err != nil {
		return nil, err
	}
	if err := checkWeights(spec.Weight, weights); err != nil {
		return nil, err
	}

	index := make(map[cellKey]int)
	var keys []cellKey
	var members [][]int
	for i := 0; i < table.Len(); i++ {
		if !rowCol[i].Valid || !colCol[i].Valid || !values[i].Valid || !weights[i].Valid {
			continue
		}
		k := cellKey{rowCol[i].Value, colCol[i].Value}
		pos, ok := index[k]
		if !ok {
			pos = len(keys)
			index[k] = pos
			keys = append(keys, k)
			members = append(members, nil)
		}
		members[pos] = append(members[pos], i)
	}

	cells := make([]survey.CrosstabCell, len(keys))
	for p, k := range keys {
		x, w := collect(values, weights, members[p])
		if floats.Sum(w) <= 0 {
			return nil, core.NewEmptyGroupError(spec.Value, survey.GroupKey{k.row, k.col}.String())
		}
		mean := stat.Mean(x, w)
		if !isFinite(mean) {
			return nil, core.NewNonFiniteEstimateError("weighted mean", spec.Value, survey.GroupKey{k.row, k.col}.String())
		}
		cells[p] = survey.CrosstabCell{Row: k.row, Col: k.col, Value: mean, N: len(x), WeightedMean: mean}
	}

	if err := normalize(cells, mode); err != nil {
		return nil, err
	}
	return cells, nil
}

func normalize(cells []survey.CrosstabCell, mode survey.NormalizeMode) error {
	var base func(survey.CrosstabCell) string
	switch mode {
	case survey.NormalizeNone:
		return nil
	case survey.NormalizeAll:
		base = func(survey.CrosstabCell) string { return "" }
	case survey.NormalizeRow:
		base = func(c survey.CrosstabCell) string { return c.Row }
	case survey.NormalizeCol:
		base = func(c survey.CrosstabCell) string { return c.Col }
	default:
		return fmt.Errorf("%w: %q", core.ErrInvalidNormalizeMode, mode)
	}

	sums := make(map[string]float64)
	for _, c := range cells {
		sums[base(c)] += c.Value
	}
	for _, c := range cells {
		if key := base(c); sums[key] == 0 {
			return core.NewZeroBaseError(string(mode), key)
		}
	}
	for _, c := range cells {
		if key := base(c); !isFinite(sums[key]) {
			return core.NewNonFiniteEstimateError("normalization base", string(mode), key)
		}
	}
	for i := range cells {
		cells[i].Value /= sums[base(cells[i])]
	}
	return nil
}
