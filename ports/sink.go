package ports

import (
	"context"

	"surveystats/domain/survey"
)

// SummarySink consumes summary rows as flat tabular output.
type SummarySink interface {
	WriteSummary(ctx context.Context, rows []survey.SummaryRow) error
}

// CrosstabSink consumes crosstab cells as flat tabular output.
type CrosstabSink interface {
	WriteCrosstab(ctx context.Context, cells []survey.CrosstabCell) error
}

// ResultSink accepts both result shapes.
type ResultSink interface {
	SummarySink
	CrosstabSink
}
