package ports

import (
	"context"
	"time"

	"surveystats/domain/core"
	"surveystats/domain/survey"
)

// RunRecord describes one persisted analysis run.
type RunRecord struct {
	ID        core.RunID `db:"id" json:"id"`
	Label     string     `db:"label" json:"label"`
	Source    string     `db:"source" json:"source"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// CrosstabResult is a named crosstab saved with a run.
type CrosstabResult struct {
	Name  string
	Cells []survey.CrosstabCell
}

// ResultRepository persists summary rows and crosstab cells under a run id.
type ResultRepository interface {
	// SaveRun creates the run with its summary rows and crosstabs in one
	// transaction; on error nothing of the run is stored.
	SaveRun(ctx context.Context, run RunRecord, rows []survey.SummaryRow, crosstabs []CrosstabResult) error
	CreateRun(ctx context.Context, run RunRecord) error
	SaveSummary(ctx context.Context, runID core.RunID, rows []survey.SummaryRow) error
	SaveCrosstab(ctx context.Context, runID core.RunID, name string, cells []survey.CrosstabCell) error

	GetRun(ctx context.Context, runID core.RunID) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	GetSummary(ctx context.Context, runID core.RunID) ([]survey.SummaryRow, error)
	GetCrosstab(ctx context.Context, runID core.RunID, name string) ([]survey.CrosstabCell, error)
}
