package survey

import (
	"math"
	"strings"
)

// Number is an optional numeric cell. Missing values are carried explicitly
// and never collapse to zero.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a present numeric value. NaN is treated as missing.
func Num(v float64) Number {
	if math.IsNaN(v) {
		return Number{}
	}
	return Number{Value: v, Valid: true}
}

// Missing returns a missing numeric value.
func Missing() Number { return Number{} }

// Nums builds a fully observed numeric column.
func Nums(values ...float64) []Number {
	out := make([]Number, len(values))
	for i, v := range values {
		out[i] = Num(v)
	}
	return out
}

// Category is an optional categorical cell.
type Category struct {
	Value string
	Valid bool
}

// Cat returns a present category.
func Cat(v string) Category { return Category{Value: v, Valid: true} }

// Cats builds a fully observed categorical column.
func Cats(values ...string) []Category {
	out := make([]Category, len(values))
	for i, v := range values {
		out[i] = Cat(v)
	}
	return out
}

// GroupKey is the ordered tuple of grouping values identifying a sub-population.
// The empty key identifies the whole table.
type GroupKey []string

// KeySeparator joins group key parts in String.
const KeySeparator = " | "

// String returns the key parts joined by KeySeparator, usable as a join key.
func (k GroupKey) String() string {
	return strings.Join(k, KeySeparator)
}

// SummaryRow is one computed record per (indicator, group key) pair.
type SummaryRow struct {
	Indicator      string   `json:"indicator"`
	GroupColumns   []string `json:"group_columns,omitempty"`
	Group          GroupKey `json:"group,omitempty"`
	WeightedMean   float64  `json:"weighted_mean"`
	SE             float64  `json:"se"`
	WeightedMedian float64  `json:"weighted_median"`
	N              int      `json:"n"`
	TotalWeight    float64  `json:"total_weight"`

	// CI is set by the confidence interval step.
	CI *Interval `json:"ci,omitempty"`

	// SmallSample is set by the small-sample flagger.
	SmallSample *bool `json:"small_sample,omitempty"`
}

// IsSmallSample reports the small-sample flag, false when the row was never flagged.
func (r SummaryRow) IsSmallSample() bool {
	return r.SmallSample != nil && *r.SmallSample
}

// Interval is a two-sided confidence interval at Level.
type Interval struct {
	Level float64 `json:"level"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// NormalizeMode selects how crosstab cell values are rescaled.
type NormalizeMode string

const (
	NormalizeNone NormalizeMode = "none"
	NormalizeAll  NormalizeMode = "all"
	NormalizeRow  NormalizeMode = "row"
	NormalizeCol  NormalizeMode = "col"
)

// CrosstabCell holds the weighted mean of a value column for one
// (row category, column category) pair.
type CrosstabCell struct {
	Row   string  `json:"row"`
	Col   string  `json:"col"`
	Value float64 `json:"value"`
	N     int     `json:"n"`

	// WeightedMean keeps the raw cell mean when Value has been normalised.
	WeightedMean float64 `json:"weighted_mean"`
}
