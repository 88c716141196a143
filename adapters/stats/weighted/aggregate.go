package weighted

import (
	"context"
	"math"
	"strconv"
	"strings"

	"surveystats/domain/core"
	"surveystats/domain/survey"
	"surveystats/ports"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Options configures an Aggregator.
type Options struct {
	// Estimator computes the standard error; nil selects LinearizationSE.
	Estimator ports.SEEstimator
	// Workers bounds how many indicators are aggregated concurrently.
	Workers int
}

// DefaultOptions returns the linearisation estimator with four workers.
func DefaultOptions() Options {
	return Options{Estimator: LinearizationSE{}, Workers: 4}
}

// Aggregator computes weighted summary rows per indicator and group.
type Aggregator struct {
	estimator ports.SEEstimator
	workers   int
}

// NewAggregator creates an aggregator from opts.
func NewAggregator(opts Options) *Aggregator {
	if opts.Estimator == nil {
		opts.Estimator = LinearizationSE{}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Aggregator{estimator: opts.Estimator, workers: opts.Workers}
}

// Estimator returns the configured standard error estimator.
func (a *Aggregator) Estimator() ports.SEEstimator { return a.estimator }

// Workers returns the indicator concurrency limit.
func (a *Aggregator) Workers() int { return a.workers }

// Aggregate summarises every indicator in roles over every group present in
// the table. Rows are ordered by indicator (as listed) and then by first-seen
// group. The first failing indicator, in listed order, aborts the call.
func (a *Aggregator) Aggregate(ctx context.Context, table *survey.Table, roles survey.ColumnRoles) ([]survey.SummaryRow, error) {
	if err := roles.Validate(table); err != nil {
		return nil, err
	}
	weights, err := table.Numeric(roles.Weight)
	if err != nil {
		return nil, err
	}
	if err := checkWeights(roles.Weight, weights); err != nil {
		return nil, err
	}
	groups, err := groupRows(table, roles.GroupBy)
	if err != nil {
		return nil, err
	}

	results := make([][]survey.SummaryRow, len(roles.Indicators))
	errs := make([]error, len(roles.Indicators))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, indicator := range roles.Indicators {
		i, indicator := i, indicator
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			values, err := indicatorValues(table, indicator)
			if err != nil {
				errs[i] = err
				return err
			}
			results[i], errs[i] = a.summarizeGroups(indicator, values, weights, roles.GroupBy, groups)
			return errs[i]
		})
	}
	// Wait's error depends on scheduling; report the first failure in listed order instead.
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var out []survey.SummaryRow
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

// AggregateIndicator is the single-indicator form of Aggregate, for callers
// that orchestrate per-indicator partial success themselves.
func (a *Aggregator) AggregateIndicator(table *survey.Table, indicator, weight string, groupBy []string) ([]survey.SummaryRow, error) {
	roles := survey.ColumnRoles{Weight: weight, Indicators: []string{indicator}, GroupBy: groupBy}
	if err := roles.Validate(table); err != nil {
		return nil, err
	}
	weights, err := table.Numeric(weight)
	if err != nil {
		return nil, err
	}
	if err := checkWeights(weight, weights); err != nil {
		return nil, err
	}
	values, err := indicatorValues(table, indicator)
	if err != nil {
		return nil, err
	}
	groups, err := groupRows(table, groupBy)
	if err != nil {
		return nil, err
	}
	return a.summarizeGroups(indicator, values, weights, groupBy, groups)
}

func (a *Aggregator) summarizeGroups(indicator string, values, weights []survey.Number, groupBy []string, groups []group) ([]survey.SummaryRow, error) {
	rows := make([]survey.SummaryRow, 0, len(groups))
	for _, grp := range groups {
		row, ok := a.summarize(values, weights, grp.rows)
		if !ok {
			return nil, core.NewEmptyGroupError(indicator, grp.key.String())
		}
		if err := checkEstimates(indicator, grp.key.String(), row); err != nil {
			return nil, err
		}
		row.Indicator = indicator
		if len(groupBy) > 0 {
			row.GroupColumns = append([]string(nil), groupBy...)
			row.Group = grp.key
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// summarize reports false when no record with a present value and a
// positive total weight remains.
func (a *Aggregator) summarize(values, weights []survey.Number, idx []int) (survey.SummaryRow, bool) {
	x, w := collect(values, weights, idx)
	if len(x) == 0 {
		return survey.SummaryRow{}, false
	}
	total := floats.Sum(w)
	if total <= 0 {
		return survey.SummaryRow{}, false
	}

	mean := stat.Mean(x, w)
	return survey.SummaryRow{
		WeightedMean:   mean,
		SE:             a.estimator.StandardError(x, w, mean),
		WeightedMedian: Median(x, w),
		N:              len(x),
		TotalWeight:    total,
	}, true
}

// Aggregate runs the default aggregator.
func Aggregate(ctx context.Context, table *survey.Table, roles survey.ColumnRoles) ([]survey.SummaryRow, error) {
	return NewAggregator(DefaultOptions()).Aggregate(ctx, table, roles)
}

// Mean is the weighted mean Σwv/Σw over records where both value and weight
// are present. ok is false when no such record exists or the weights sum to zero.
func Mean(values, weights []survey.Number) (mean float64, ok bool) {
	x, w := collect(values, weights, nil)
	if len(x) == 0 || floats.Sum(w) <= 0 {
		return 0, false
	}
	mean = stat.Mean(x, w)
	if !isFinite(mean) {
		return 0, false
	}
	return mean, true
}

// collect gathers the present (value, weight) pairs at idx, or over all
// records when idx is nil.
func collect(values, weights []survey.Number, idx []int) (x, w []float64) {
	if idx == nil {
		x = make([]float64, 0, len(values))
		w = make([]float64, 0, len(values))
		for i := range values {
			if values[i].Valid && weights[i].Valid {
				x = append(x, values[i].Value)
				w = append(w, weights[i].Value)
			}
		}
		return x, w
	}
	x = make([]float64, 0, len(idx))
	w = make([]float64, 0, len(idx))
	for _, i := range idx {
		if values[i].Valid && weights[i].Valid {
			x = append(x, values[i].Value)
			w = append(w, weights[i].Value)
		}
	}
	return x, w
}

func checkWeights(column string, weights []survey.Number) error {
	for i, w := range weights {
		if !w.Valid {
			continue
		}
		if !isFinite(w.Value) {
			return core.NewNonFiniteError(column, i, w.Value)
		}
		if w.Value < 0 {
			return core.NewNegativeWeightError(column, i, w.Value)
		}
	}
	return nil
}

// checkFinite rejects ±Inf and NaN cells.
func checkFinite(column string, values []survey.Number) error {
	for i, v := range values {
		if v.Valid && !isFinite(v.Value) {
			return core.NewNonFiniteError(column, i, v.Value)
		}
	}
	return nil
}

func indicatorValues(table *survey.Table, indicator string) ([]survey.Number, error) {
	values, err := table.Numeric(indicator)
	if err != nil {
		return nil, err
	}
	if err := checkFinite(indicator, values); err != nil {
		return nil, err
	}
	return values, nil
}

// checkEstimates catches sums that overflowed even though every input was finite.
func checkEstimates(indicator, group string, row survey.SummaryRow) error {
	switch {
	case !isFinite(row.TotalWeight):
		return core.NewNonFiniteEstimateError("total weight", indicator, group)
	case !isFinite(row.WeightedMean):
		return core.NewNonFiniteEstimateError("weighted mean", indicator, group)
	case !isFinite(row.SE):
		return core.NewNonFiniteEstimateError("standard error", indicator, group)
	case !isFinite(row.WeightedMedian):
		return core.NewNonFiniteEstimateError("weighted median", indicator, group)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

type group struct {
	key  survey.GroupKey
	rows []int
}

// groupRows partitions record indexes by group key in first-seen order.
// Records missing any grouping value belong to no group.
func groupRows(table *survey.Table, groupBy []string) ([]group, error) {
	if len(groupBy) == 0 {
		all := make([]int, table.Len())
		for i := range all {
			all[i] = i
		}
		return []group{{rows: all}}, nil
	}

	cols := make([][]survey.Category, len(groupBy))
	for j, name := range groupBy {
		c, err := table.Categorical(name)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}

	index := make(map[string]int)
	var groups []group
rows:
	for i := 0; i < table.Len(); i++ {
		key := make(survey.GroupKey, len(cols))
		for j, c := range cols {
			if !c[i].Valid {
				continue rows
			}
			key[j] = c[i].Value
		}
		id := encodeKey(key)
		pos, ok := index[id]
		if !ok {
			pos = len(groups)
			index[id] = pos
			groups = append(groups, group{key: key})
		}
		groups[pos].rows = append(groups[pos].rows, i)
	}
	return groups, nil
}

// encodeKey builds an unambiguous map key from group parts.
func encodeKey(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strconv.Itoa(len(p)))
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}
