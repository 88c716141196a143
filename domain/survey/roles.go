package survey

import (
	"fmt"

	"surveystats/domain/core"
)

// ColumnRoles maps logical roles to column names. It is validated once per
// call against the table being analysed.
type ColumnRoles struct {
	Weight     string   `json:"weight" yaml:"weight"`
	Indicators []string `json:"indicators" yaml:"indicators"`
	GroupBy    []string `json:"group_by,omitempty" yaml:"group_by,omitempty"`
}

// Validate checks that every named column exists with the right kind.
func (r ColumnRoles) Validate(t *Table) error {
	if r.Weight == "" {
		return fmt.Errorf("%w: weight column is required", core.ErrInvalidRoles)
	}
	if len(r.Indicators) == 0 {
		return fmt.Errorf("%w: at least one indicator is required", core.ErrInvalidRoles)
	}
	if _, err := t.Numeric(r.Weight); err != nil {
		return err
	}
	seen := make(map[string]bool, len(r.Indicators))
	for _, ind := range r.Indicators {
		if seen[ind] {
			return fmt.Errorf("%w: indicator %q listed twice", core.ErrInvalidRoles, ind)
		}
		seen[ind] = true
		if _, err := t.Numeric(ind); err != nil {
			return err
		}
	}
	for _, g := range r.GroupBy {
		if !t.Has(g) {
			return core.NewMissingColumnError(g)
		}
	}
	return nil
}
