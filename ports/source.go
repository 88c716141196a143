package ports

import (
	"context"

	"surveystats/domain/survey"
)

// TableSource supplies an observation table. Missing cells must be
// distinguishable from valid zero or empty values.
type TableSource interface {
	ReadTable(ctx context.Context) (*survey.Table, error)
}
