package export

import (
	"strconv"

	"surveystats/domain/survey"
)

// SummaryHeader returns the flat column names for rows: indicator, the
// union of group columns in first-seen order, the estimates, and the CI and
// small-sample fields when any row carries them.
func SummaryHeader(rows []survey.SummaryRow) []string {
	header := []string{"indicator"}
	header = append(header, groupColumns(rows)...)
	header = append(header, "weighted_mean", "se", "weighted_median", "n", "total_weight")
	hasCI, hasFlag := optionalFields(rows)
	if hasCI {
		header = append(header, "ci_level", "ci_lower", "ci_upper")
	}
	if hasFlag {
		header = append(header, "small_sample")
	}
	return header
}

// SummaryRecords flattens rows into string records matching SummaryHeader.
// Group columns a row does not carry are left empty.
func SummaryRecords(rows []survey.SummaryRow) [][]string {
	cols := groupColumns(rows)
	hasCI, hasFlag := optionalFields(rows)

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := []string{row.Indicator}
		values := make(map[string]string, len(row.GroupColumns))
		for i, c := range row.GroupColumns {
			if i < len(row.Group) {
				values[c] = row.Group[i]
			}
		}
		for _, c := range cols {
			rec = append(rec, values[c])
		}
		rec = append(rec,
			formatFloat(row.WeightedMean),
			formatFloat(row.SE),
			formatFloat(row.WeightedMedian),
			strconv.Itoa(row.N),
			formatFloat(row.TotalWeight),
		)
		if hasCI {
			if row.CI != nil {
				rec = append(rec, formatFloat(row.CI.Level), formatFloat(row.CI.Lower), formatFloat(row.CI.Upper))
			} else {
				rec = append(rec, "", "", "")
			}
		}
		if hasFlag {
			if row.SmallSample != nil {
				rec = append(rec, strconv.FormatBool(*row.SmallSample))
			} else {
				rec = append(rec, "")
			}
		}
		records = append(records, rec)
	}
	return records
}

// CrosstabHeader is the flat column layout of crosstab cells.
var CrosstabHeader = []string{"row", "col", "value", "weighted_mean", "n"}

// CrosstabRecords flattens cells into string records matching CrosstabHeader.
func CrosstabRecords(cells []survey.CrosstabCell) [][]string {
	records := make([][]string, 0, len(cells))
	for _, c := range cells {
		records = append(records, []string{
			c.Row,
			c.Col,
			formatFloat(c.Value),
			formatFloat(c.WeightedMean),
			strconv.Itoa(c.N),
		})
	}
	return records
}

func groupColumns(rows []survey.SummaryRow) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, c := range row.GroupColumns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}

func optionalFields(rows []survey.SummaryRow) (hasCI, hasFlag bool) {
	for _, row := range rows {
		hasCI = hasCI || row.CI != nil
		hasFlag = hasFlag || row.SmallSample != nil
	}
	return hasCI, hasFlag
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
