package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"surveystats/domain/core"
	"surveystats/domain/survey"
	"surveystats/internal/errors"
	"surveystats/ports"

	"github.com/jmoiron/sqlx"
)

// ResultRepositoryImpl implements ResultRepository for SQLite and PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a result repository over db
func NewResultRepository(db *sqlx.DB) *ResultRepositoryImpl {
	return &ResultRepositoryImpl{db: db}
}

var _ ports.ResultRepository = (*ResultRepositoryImpl)(nil)

// timeLayout is fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type runRow struct {
	ID        string `db:"id"`
	Label     string `db:"label"`
	Source    string `db:"source"`
	CreatedAt string `db:"created_at"`
}

func (r runRow) record() (ports.RunRecord, error) {
	createdAt, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return ports.RunRecord{}, fmt.Errorf("run %s: bad created_at %q: %w", r.ID, r.CreatedAt, err)
	}
	return ports.RunRecord{
		ID:        core.RunID(r.ID),
		Label:     r.Label,
		Source:    r.Source,
		CreatedAt: createdAt,
	}, nil
}

type summaryRow struct {
	Indicator      string          `db:"indicator"`
	GroupColumns   string          `db:"group_columns"`
	GroupKey       string          `db:"group_key"`
	WeightedMean   float64         `db:"weighted_mean"`
	SE             float64         `db:"se"`
	WeightedMedian float64         `db:"weighted_median"`
	N              int             `db:"n"`
	TotalWeight    float64         `db:"total_weight"`
	CILevel        sql.NullFloat64 `db:"ci_level"`
	CILower        sql.NullFloat64 `db:"ci_lower"`
	CIUpper        sql.NullFloat64 `db:"ci_upper"`
	SmallSample    sql.NullBool    `db:"small_sample"`
}

type crosstabRow struct {
	Row          string  `db:"row_value"`
	Col          string  `db:"col_value"`
	Value        float64 `db:"value"`
	WeightedMean float64 `db:"weighted_mean"`
	N            int     `db:"n"`
}

// SaveRun inserts the run, its summary rows and its crosstabs in a single
// transaction. A zero CreatedAt is set to now.
func (r *ResultRepositoryImpl) SaveRun(ctx context.Context, run ports.RunRecord, rows []survey.SummaryRow, crosstabs []ports.CrosstabResult) error {
	if run.ID.String() == "" {
		return errors.InvalidInput("run id is required")
	}
	seen := make(map[string]bool, len(crosstabs))
	for _, c := range crosstabs {
		if c.Name == "" {
			return errors.InvalidInput("crosstab name is required")
		}
		if seen[c.Name] {
			return errors.InvalidInput(fmt.Sprintf("duplicate crosstab %q", c.Name))
		}
		seen[c.Name] = true
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, run); err != nil {
		return errors.DatabaseError("failed to create run", err)
	}
	if err := replaceSummary(ctx, tx, run.ID, rows); err != nil {
		return errors.DatabaseError("failed to save results", err)
	}
	for _, c := range crosstabs {
		if err := replaceCrosstab(ctx, tx, run.ID, c.Name, c.Cells); err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to save crosstab %s", c.Name), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit results", err)
	}
	return nil
}

// CreateRun inserts a run record. A zero CreatedAt is set to now.
func (r *ResultRepositoryImpl) CreateRun(ctx context.Context, run ports.RunRecord) error {
	if run.ID.String() == "" {
		return errors.InvalidInput("run id is required")
	}
	if err := insertRun(ctx, r.db, run); err != nil {
		return errors.DatabaseError("failed to create run", err)
	}
	return nil
}

// SaveSummary replaces the run's summary rows with rows, keeping their order.
func (r *ResultRepositoryImpl) SaveSummary(ctx context.Context, runID core.RunID, rows []survey.SummaryRow) error {
	return r.inTx(ctx, runID, func(tx *sqlx.Tx) error {
		return replaceSummary(ctx, tx, runID, rows)
	})
}

// SaveCrosstab replaces the named crosstab of a run with cells.
func (r *ResultRepositoryImpl) SaveCrosstab(ctx context.Context, runID core.RunID, name string, cells []survey.CrosstabCell) error {
	if name == "" {
		return errors.InvalidInput("crosstab name is required")
	}
	return r.inTx(ctx, runID, func(tx *sqlx.Tx) error {
		return replaceCrosstab(ctx, tx, runID, name, cells)
	})
}

func insertRun(ctx context.Context, db sqlx.ExtContext, run ports.RunRecord) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, db.Rebind(`
		INSERT INTO runs (id, label, source, created_at)
		VALUES (?, ?, ?, ?)
	`), run.ID.String(), run.Label, run.Source, run.CreatedAt.UTC().Format(timeLayout))
	return err
}

func replaceSummary(ctx context.Context, tx *sqlx.Tx, runID core.RunID, rows []survey.SummaryRow) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM summary_rows WHERE run_id = ?`), runID.String()); err != nil {
		return err
	}
	insert := tx.Rebind(`
		INSERT INTO summary_rows (
			run_id, position, indicator, group_columns, group_key,
			weighted_mean, se, weighted_median, n, total_weight,
			ci_level, ci_lower, ci_upper, small_sample
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for i, row := range rows {
		cols, err := marshalStrings(row.GroupColumns)
		if err != nil {
			return err
		}
		key, err := marshalStrings(row.Group)
		if err != nil {
			return err
		}
		var level, lower, upper sql.NullFloat64
		if row.CI != nil {
			level = sql.NullFloat64{Float64: row.CI.Level, Valid: true}
			lower = sql.NullFloat64{Float64: row.CI.Lower, Valid: true}
			upper = sql.NullFloat64{Float64: row.CI.Upper, Valid: true}
		}
		var small sql.NullBool
		if row.SmallSample != nil {
			small = sql.NullBool{Bool: *row.SmallSample, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert,
			runID.String(), i, row.Indicator, cols, key,
			row.WeightedMean, row.SE, row.WeightedMedian, row.N, row.TotalWeight,
			level, lower, upper, small,
		); err != nil {
			return err
		}
	}
	return nil
}

func replaceCrosstab(ctx context.Context, tx *sqlx.Tx, runID core.RunID, name string, cells []survey.CrosstabCell) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM crosstab_cells WHERE run_id = ? AND name = ?`), runID.String(), name); err != nil {
		return err
	}
	insert := tx.Rebind(`
		INSERT INTO crosstab_cells (run_id, name, position, row_value, col_value, value, weighted_mean, n)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for i, c := range cells {
		if _, err := tx.ExecContext(ctx, insert, runID.String(), name, i, c.Row, c.Col, c.Value, c.WeightedMean, c.N); err != nil {
			return err
		}
	}
	return nil
}

// inTx runs fn in a transaction after checking the run exists.
func (r *ResultRepositoryImpl) inTx(ctx context.Context, runID core.RunID, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM runs WHERE id = ?`), runID.String()); err != nil {
		return errors.DatabaseError("failed to look up run", err)
	}
	if count == 0 {
		return runNotFound(runID)
	}

	if err := fn(tx); err != nil {
		return errors.DatabaseError("failed to save results", err)
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit results", err)
	}
	return nil
}

// GetRun retrieves one run record
func (r *ResultRepositoryImpl) GetRun(ctx context.Context, runID core.RunID) (*ports.RunRecord, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, label, source, created_at FROM runs WHERE id = ?
	`), runID.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, runNotFound(runID)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to get run", err)
	}
	rec, err := row.record()
	if err != nil {
		return nil, errors.DatabaseError("failed to decode run", err)
	}
	return &rec, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (r *ResultRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	query := `SELECT id, label, source, created_at FROM runs ORDER BY created_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	runs := make([]ports.RunRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, errors.DatabaseError("failed to decode run", err)
		}
		runs = append(runs, rec)
	}
	return runs, nil
}

// GetSummary returns a run's summary rows in saved order.
func (r *ResultRepositoryImpl) GetSummary(ctx context.Context, runID core.RunID) ([]survey.SummaryRow, error) {
	if _, err := r.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	var rows []summaryRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT indicator, group_columns, group_key, weighted_mean, se, weighted_median,
		       n, total_weight, ci_level, ci_lower, ci_upper, small_sample
		FROM summary_rows
		WHERE run_id = ?
		ORDER BY position
	`), runID.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to get summary rows", err)
	}

	out := make([]survey.SummaryRow, 0, len(rows))
	for _, row := range rows {
		s := survey.SummaryRow{
			Indicator:      row.Indicator,
			WeightedMean:   row.WeightedMean,
			SE:             row.SE,
			WeightedMedian: row.WeightedMedian,
			N:              row.N,
			TotalWeight:    row.TotalWeight,
		}
		if err := unmarshalStrings(row.GroupColumns, &s.GroupColumns); err != nil {
			return nil, errors.DatabaseError("failed to decode group columns", err)
		}
		var key []string
		if err := unmarshalStrings(row.GroupKey, &key); err != nil {
			return nil, errors.DatabaseError("failed to decode group key", err)
		}
		if key != nil {
			s.Group = survey.GroupKey(key)
		}
		if row.CILevel.Valid {
			s.CI = &survey.Interval{Level: row.CILevel.Float64, Lower: row.CILower.Float64, Upper: row.CIUpper.Float64}
		}
		if row.SmallSample.Valid {
			small := row.SmallSample.Bool
			s.SmallSample = &small
		}
		out = append(out, s)
	}
	return out, nil
}

// GetCrosstab returns the named crosstab of a run in saved order.
func (r *ResultRepositoryImpl) GetCrosstab(ctx context.Context, runID core.RunID, name string) ([]survey.CrosstabCell, error) {
	var rows []crosstabRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT row_value, col_value, value, weighted_mean, n
		FROM crosstab_cells
		WHERE run_id = ? AND name = ?
		ORDER BY position
	`), runID.String(), name)
	if err != nil {
		return nil, errors.DatabaseError("failed to get crosstab", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: crosstab %q of run %s", core.ErrNotFound, name, runID)
	}

	cells := make([]survey.CrosstabCell, len(rows))
	for i, row := range rows {
		cells[i] = survey.CrosstabCell{Row: row.Row, Col: row.Col, Value: row.Value, WeightedMean: row.WeightedMean, N: row.N}
	}
	return cells, nil
}

// CrosstabNames lists the crosstabs saved for a run.
func (r *ResultRepositoryImpl) CrosstabNames(ctx context.Context, runID core.RunID) ([]string, error) {
	var names []string
	err := r.db.SelectContext(ctx, &names, r.db.Rebind(`
		SELECT DISTINCT name FROM crosstab_cells WHERE run_id = ? ORDER BY name
	`), runID.String())
	if err != nil {
		return nil, errors.DatabaseError("failed to list crosstabs", err)
	}
	return names, nil
}

func runNotFound(runID core.RunID) error {
	return fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	return string(data), err
}

func unmarshalStrings(data string, dst *[]string) error {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return err
	}
	if len(values) > 0 {
		*dst = values
	}
	return nil
}
