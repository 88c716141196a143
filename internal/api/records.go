package api

import (
	"fmt"
	"math"
	"strings"

	"surveystats/domain/core"
	"surveystats/domain/survey"

	"github.com/spf13/cast"
)

// Record is one JSON observation. A null or absent field is missing.
type Record map[string]interface{}

// tableFromRecords builds a table from JSON records. numeric columns are
// coerced with cast (numbers, numeric strings and booleans are accepted);
// categorical columns are rendered as strings. Numeric cells must be finite.
// A column no record mentions is left out so validation reports it as
// missing.
func tableFromRecords(records []Record, numeric, categorical []string) (*survey.Table, error) {
	table := survey.NewTable(len(records))
	added := make(map[string]bool)

	for _, col := range numeric {
		if added[col] || !mentioned(records, col) {
			continue
		}
		values := make([]survey.Number, len(records))
		for i, rec := range records {
			raw, ok := rec[col]
			if !ok || isMissing(raw) {
				continue
			}
			v, err := cast.ToFloat64E(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %q at record %d: %v", core.ErrNonNumericColumn, col, i, raw)
			}
			if math.IsInf(v, 0) || math.IsNaN(v) {
				return nil, core.NewNonFiniteError(col, i, v)
			}
			values[i] = survey.Num(v)
		}
		if err := table.AddNumeric(col, values); err != nil {
			return nil, err
		}
		added[col] = true
	}

	for _, col := range categorical {
		if added[col] || !mentioned(records, col) {
			continue
		}
		values := make([]survey.Category, len(records))
		for i, rec := range records {
			raw, ok := rec[col]
			if !ok || isMissing(raw) {
				continue
			}
			s, err := cast.ToStringE(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: column %q at record %d is not a scalar", core.ErrInvalidRoles, col, i)
			}
			values[i] = survey.Cat(s)
		}
		if err := table.AddCategorical(col, values); err != nil {
			return nil, err
		}
		added[col] = true
	}
	return table, nil
}

func mentioned(records []Record, col string) bool {
	for _, rec := range records {
		if _, ok := rec[col]; ok {
			return true
		}
	}
	return false
}

func isMissing(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
