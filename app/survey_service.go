package app

import (
	"context"
	"fmt"
	"time"

	"surveystats/adapters/stats/profile"
	"surveystats/adapters/stats/weighted"
	"surveystats/domain/survey"
	"surveystats/internal"
	"surveystats/internal/config"
	"surveystats/ports"
)

// SurveyService composes the weighted estimators into the analyses users run:
// summaries with intervals and small-sample flags, crosstabs, design effects
// and profiles.
type SurveyService struct {
	aggregator *weighted.Aggregator
	profiler   *profile.Profiler
	logger     *internal.Logger
	minN       int
	level      float64
}

// ServiceOptions configures a SurveyService. Zero values select defaults.
type ServiceOptions struct {
	Estimator       ports.SEEstimator
	Workers         int
	MinN            int
	ConfidenceLevel float64
	Logger          *internal.Logger
}

// SummaryRequest defines one summary computation
type SummaryRequest struct {
	Roles survey.ColumnRoles

	// ConfidenceLevel overrides the service default when non-zero.
	ConfidenceLevel float64

	// MinN overrides the small-sample threshold when non-zero.
	MinN int

	SkipIntervals bool
}

// DesignEffectResult reports the weight-only design effect of a column
type DesignEffectResult struct {
	Column       string  `json:"column"`
	N            int     `json:"n"`
	EffectiveN   float64 `json:"effective_n"`
	DesignEffect float64 `json:"design_effect"`
}

// NewSurveyService creates a survey service
func NewSurveyService(opts ServiceOptions) *SurveyService {
	if opts.MinN <= 0 {
		opts.MinN = weighted.DefaultMinN
	}
	if opts.ConfidenceLevel == 0 {
		opts.ConfidenceLevel = weighted.DefaultConfidenceLevel
	}
	if opts.Logger == nil {
		opts.Logger = internal.DefaultLogger
	}
	return &SurveyService{
		aggregator: weighted.NewAggregator(weighted.Options{Estimator: opts.Estimator, Workers: opts.Workers}),
		profiler:   profile.NewProfiler(),
		logger:     opts.Logger,
		minN:       opts.MinN,
		level:      opts.ConfidenceLevel,
	}
}

// NewSurveyServiceFromConfig builds a service from the analysis settings
func NewSurveyServiceFromConfig(cfg *config.Config, logger *internal.Logger) (*SurveyService, error) {
	estimator, err := weighted.EstimatorByName(cfg.Analysis.SEEstimator)
	if err != nil {
		return nil, err
	}
	return NewSurveyService(ServiceOptions{
		Estimator:       estimator,
		Workers:         cfg.Analysis.Workers,
		MinN:            cfg.Analysis.MinN,
		ConfidenceLevel: cfg.Analysis.ConfidenceLevel,
		Logger:          logger,
	}), nil
}

// EstimatorName returns the configured standard error estimator
func (s *SurveyService) EstimatorName() string {
	return s.aggregator.Estimator().Name()
}

// Summarize aggregates every indicator, then adds confidence intervals and
// small-sample flags.
func (s *SurveyService) Summarize(ctx context.Context, table *survey.Table, req SummaryRequest) ([]survey.SummaryRow, error) {
	startTime := time.Now()
	level := s.level
	if req.ConfidenceLevel != 0 {
		level = req.ConfidenceLevel
	}
	minN := s.minN
	if req.MinN > 0 {
		minN = req.MinN
	}
	// Reject a bad level before doing any work.
	if !req.SkipIntervals {
		if _, err := weighted.ZScore(level); err != nil {
			return nil, err
		}
	}

	rows, err := s.aggregator.Aggregate(ctx, table, req.Roles)
	if err != nil {
		s.logger.Debug("[SurveyService] aggregation failed: %v", err)
		return nil, err
	}
	if !req.SkipIntervals {
		if rows, err = weighted.WithConfidenceIntervals(rows, level); err != nil {
			return nil, err
		}
	}
	rows = weighted.FlagSmallSamples(rows, minN)

	flagged := 0
	for _, r := range rows {
		if r.IsSmallSample() {
			flagged++
		}
	}
	s.logger.Info("[SurveyService] %d indicators x %v: %d rows (%d below n=%d) in %.2fms",
		len(req.Roles.Indicators), req.Roles.GroupBy, len(rows), flagged, minN,
		float64(time.Since(startTime).Nanoseconds())/1e6)
	return rows, nil
}

// National summarises indicators over the whole table.
func (s *SurveyService) National(ctx context.Context, table *survey.Table, weight string, indicators []string) ([]survey.SummaryRow, error) {
	return s.Summarize(ctx, table, SummaryRequest{
		Roles: survey.ColumnRoles{Weight: weight, Indicators: indicators},
	})
}

// Subnational summarises indicators per region, optionally crossed with
// further grouping columns.
func (s *SurveyService) Subnational(ctx context.Context, table *survey.Table, weight string, indicators []string, region string, extra ...string) ([]survey.SummaryRow, error) {
	groupBy := append([]string{region}, extra...)
	return s.Summarize(ctx, table, SummaryRequest{
		Roles: survey.ColumnRoles{Weight: weight, Indicators: indicators, GroupBy: groupBy},
	})
}

// Crosstab computes a weighted two-way breakdown.
func (s *SurveyService) Crosstab(ctx context.Context, table *survey.Table, spec weighted.CrosstabSpec) ([]survey.CrosstabCell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cells, err := weighted.Crosstab(table, spec)
	if err != nil {
		return nil, err
	}
	s.logger.Info("[SurveyService] crosstab %s x %s of %s: %d cells", spec.Row, spec.Col, spec.Value, len(cells))
	return cells, nil
}

// DesignEffect computes n, n_eff and deff for a weight column.
func (s *SurveyService) DesignEffect(table *survey.Table, column string) (*DesignEffectResult, error) {
	weights, err := table.Numeric(column)
	if err != nil {
		return nil, err
	}
	d, err := weighted.DiagnoseWeights(weights)
	if err != nil {
		return nil, fmt.Errorf("weight column %q: %w", column, err)
	}
	return &DesignEffectResult{
		Column:       column,
		N:            d.N,
		EffectiveN:   d.EffectiveN,
		DesignEffect: d.DesignEffect,
	}, nil
}

// Profile summarises every column of the table.
func (s *SurveyService) Profile(table *survey.Table, weightColumn string) (*profile.TableProfile, error) {
	return s.profiler.ProfileTable(table, weightColumn)
}
