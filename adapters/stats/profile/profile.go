package profile

import (
	"fmt"

	"surveystats/adapters/stats/weighted"
	"surveystats/domain/survey"

	"github.com/montanaflynn/stats"
)

// ColumnProfile holds unweighted descriptive statistics for one column.
// Numeric fields are zero for categorical columns and for numeric columns
// with no present values.
type ColumnProfile struct {
	Name    string            `json:"name"`
	Kind    survey.ColumnKind `json:"kind"`
	Present int               `json:"present"`
	Missing int               `json:"missing"`

	Mean   float64 `json:"mean,omitempty"`
	StdDev float64 `json:"std_dev,omitempty"`
	Min    float64 `json:"min,omitempty"`
	Q25    float64 `json:"q25,omitempty"`
	Median float64 `json:"median,omitempty"`
	Q75    float64 `json:"q75,omitempty"`
	Max    float64 `json:"max,omitempty"`

	Levels int `json:"levels,omitempty"`
}

// WeightProfile summarises the weight column.
type WeightProfile struct {
	Column       string  `json:"column"`
	Sum          float64 `json:"sum"`
	EffectiveN   float64 `json:"effective_n"`
	DesignEffect float64 `json:"design_effect"`
}

// TableProfile is the result of profiling an observation table.
type TableProfile struct {
	Rows    int             `json:"rows"`
	Columns []ColumnProfile `json:"columns"`
	Weight  *WeightProfile  `json:"weight,omitempty"`
}

// Profiler computes per-column summaries
type Profiler struct{}

// NewProfiler creates a new profiler
func NewProfiler() *Profiler {
	return &Profiler{}
}

// ProfileTable profiles every column. When weightColumn is non-empty the
// weight design effect is included and must be computable.
func (p *Profiler) ProfileTable(table *survey.Table, weightColumn string) (*TableProfile, error) {
	out := &TableProfile{Rows: table.Len()}

	for _, name := range table.Columns() {
		var cp ColumnProfile
		var err error
		switch table.Kind(name) {
		case survey.KindNumeric:
			cp, err = p.profileNumeric(table, name)
		default:
			cp, err = p.profileCategorical(table, name)
		}
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, cp)
	}

	if weightColumn != "" {
		wp, err := p.profileWeight(table, weightColumn)
		if err != nil {
			return nil, err
		}
		out.Weight = wp
	}
	return out, nil
}

func (p *Profiler) profileNumeric(table *survey.Table, name string) (ColumnProfile, error) {
	col, err := table.Numeric(name)
	if err != nil {
		return ColumnProfile{}, err
	}
	cp := ColumnProfile{Name: name, Kind: survey.KindNumeric}

	data := make(stats.Float64Data, 0, len(col))
	for _, v := range col {
		if v.Valid {
			data = append(data, v.Value)
		}
	}
	cp.Present = len(data)
	cp.Missing = len(col) - len(data)
	if len(data) == 0 {
		return cp, nil
	}

	if cp.Mean, err = data.Mean(); err != nil {
		return cp, fmt.Errorf("mean of %q: %w", name, err)
	}
	if cp.Min, err = data.Min(); err != nil {
		return cp, fmt.Errorf("min of %q: %w", name, err)
	}
	if cp.Max, err = data.Max(); err != nil {
		return cp, fmt.Errorf("max of %q: %w", name, err)
	}
	if cp.Median, err = data.Median(); err != nil {
		return cp, fmt.Errorf("median of %q: %w", name, err)
	}
	if cp.Q25, err = data.Percentile(25); err != nil {
		return cp, fmt.Errorf("q25 of %q: %w", name, err)
	}
	if cp.Q75, err = data.Percentile(75); err != nil {
		return cp, fmt.Errorf("q75 of %q: %w", name, err)
	}
	if len(data) > 1 {
		if cp.StdDev, err = stats.StandardDeviationSample(data); err != nil {
			return cp, fmt.Errorf("std dev of %q: %w", name, err)
		}
	}
	return cp, nil
}

func (p *Profiler) profileCategorical(table *survey.Table, name string) (ColumnProfile, error) {
	col, err := table.Categorical(name)
	if err != nil {
		return ColumnProfile{}, err
	}
	cp := ColumnProfile{Name: name, Kind: survey.KindCategorical}
	levels := make(map[string]struct{})
	for _, c := range col {
		if !c.Valid {
			cp.Missing++
			continue
		}
		cp.Present++
		levels[c.Value] = struct{}{}
	}
	cp.Levels = len(levels)
	return cp, nil
}

func (p *Profiler) profileWeight(table *survey.Table, column string) (*WeightProfile, error) {
	weights, err := table.Numeric(column)
	if err != nil {
		return nil, err
	}
	d, err := weighted.DiagnoseWeights(weights)
	if err != nil {
		return nil, fmt.Errorf("weight column %q: %w", column, err)
	}
	return &WeightProfile{
		Column:       column,
		Sum:          d.Sum,
		EffectiveN:   d.EffectiveN,
		DesignEffect: d.DesignEffect,
	}, nil
}
