package weighted

import "surveystats/domain/survey"

// DefaultMinN is the reliability threshold below which groups are flagged.
const DefaultMinN = 30

// FlagSmallSamples returns a copy of rows with SmallSample set to n < minN.
// No other field changes.
func FlagSmallSamples(rows []survey.SummaryRow, minN int) []survey.SummaryRow {
	out := make([]survey.SummaryRow, len(rows))
	for i, r := range rows {
		small := r.N < minN
		r.SmallSample = &small
		out[i] = r
	}
	return out
}
