package survey

import (
	"fmt"
	"strconv"

	"surveystats/domain/core"
)

// ColumnKind distinguishes numeric from categorical columns.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
)

// Table is a columnar observation table with a fixed number of rows.
// Columns are addressed by name and keep their insertion order.
type Table struct {
	rows        int
	order       []string
	kinds       map[string]ColumnKind
	numeric     map[string][]Number
	categorical map[string][]Category
}

// NewTable creates an empty table holding rows records.
func NewTable(rows int) *Table {
	return &Table{
		rows:        rows,
		kinds:       make(map[string]ColumnKind),
		numeric:     make(map[string][]Number),
		categorical: make(map[string][]Category),
	}
}

// Len returns the number of records.
func (t *Table) Len() int { return t.rows }

// Columns returns column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.kinds[name]
	return ok
}

// Kind returns the column kind, or "" when the column is absent.
func (t *Table) Kind(name string) ColumnKind { return t.kinds[name] }

// AddNumeric adds or replaces a numeric column.
func (t *Table) AddNumeric(name string, values []Number) error {
	if err := t.checkColumn(name, len(values)); err != nil {
		return err
	}
	delete(t.categorical, name)
	t.numeric[name] = values
	t.register(name, KindNumeric)
	return nil
}

// AddCategorical adds or replaces a categorical column.
func (t *Table) AddCategorical(name string, values []Category) error {
	if err := t.checkColumn(name, len(values)); err != nil {
		return err
	}
	delete(t.numeric, name)
	t.categorical[name] = values
	t.register(name, KindCategorical)
	return nil
}

func (t *Table) checkColumn(name string, n int) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if n != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, n, t.rows)
	}
	return nil
}

func (t *Table) register(name string, kind ColumnKind) {
	if _, ok := t.kinds[name]; !ok {
		t.order = append(t.order, name)
	}
	t.kinds[name] = kind
}

// Numeric returns a numeric column.
func (t *Table) Numeric(name string) ([]Number, error) {
	switch t.kinds[name] {
	case KindNumeric:
		return t.numeric[name], nil
	case KindCategorical:
		return nil, core.NewNonNumericColumnError(name)
	default:
		return nil, core.NewMissingColumnError(name)
	}
}

// Categorical returns a column as categories. Numeric columns are rendered
// in their shortest decimal form so codes such as region ids can group.
func (t *Table) Categorical(name string) ([]Category, error) {
	switch t.kinds[name] {
	case KindCategorical:
		return t.categorical[name], nil
	case KindNumeric:
		nums := t.numeric[name]
		out := make([]Category, len(nums))
		for i, n := range nums {
			if n.Valid {
				out[i] = Cat(strconv.FormatFloat(n.Value, 'f', -1, 64))
			}
		}
		return out, nil
	default:
		return nil, core.NewMissingColumnError(name)
	}
}

// Row returns record i as display strings keyed by column name.
// Missing cells are returned as empty strings.
func (t *Table) Row(i int) map[string]string {
	row := make(map[string]string, len(t.order))
	for _, name := range t.order {
		switch t.kinds[name] {
		case KindNumeric:
			if n := t.numeric[name][i]; n.Valid {
				row[name] = strconv.FormatFloat(n.Value, 'f', -1, 64)
			} else {
				row[name] = ""
			}
		case KindCategorical:
			row[name] = t.categorical[name][i].Value
		}
	}
	return row
}
