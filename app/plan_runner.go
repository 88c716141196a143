package app

import (
	"context"
	"fmt"
	"time"

	"surveystats/adapters/excel"
	"surveystats/adapters/export"
	"surveystats/adapters/stats/weighted"
	"surveystats/domain/core"
	"surveystats/domain/survey"
	"surveystats/internal"
	"surveystats/internal/errors"
	"surveystats/internal/plan"
	"surveystats/ports"
)

// PlanRunner executes analysis plans: read the table, compute every result,
// and only then write outputs and persist the run. A failing computation
// leaves previous output files untouched.
type PlanRunner struct {
	service *SurveyService
	results ports.ResultRepository
	logger  *internal.Logger
}

// NamedSummary is the summary of one plan grouping
type NamedSummary struct {
	Name    string              `json:"name"`
	GroupBy []string            `json:"group_by,omitempty"`
	Rows    []survey.SummaryRow `json:"rows"`
}

// NamedCrosstab is the result of one plan crosstab
type NamedCrosstab struct {
	Name  string                `json:"name"`
	Cells []survey.CrosstabCell `json:"cells"`
}

// PlanResult contains the complete output of a plan run
type PlanResult struct {
	RunID        core.RunID          `json:"run_id"`
	Plan         string              `json:"plan"`
	Summaries    []NamedSummary      `json:"summaries"`
	Crosstabs    []NamedCrosstab     `json:"crosstabs"`
	DesignEffect *DesignEffectResult `json:"design_effect,omitempty"`
	Outputs      []string            `json:"outputs"`
	Stored       bool                `json:"stored"`
	RuntimeMs    int64               `json:"runtime_ms"`
}

// NewPlanRunner creates a plan runner. results may be nil, in which case
// plans asking to store their results fail.
func NewPlanRunner(service *SurveyService, results ports.ResultRepository, logger *internal.Logger) *PlanRunner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PlanRunner{service: service, results: results, logger: logger}
}

// Run executes p end to end.
func (r *PlanRunner) Run(ctx context.Context, p *plan.Plan) (*PlanResult, error) {
	startTime := time.Now()
	if p.Store && r.results == nil {
		return nil, errors.ConfigInvalid("plan requests storage but no result store is configured")
	}

	cfg := excel.DefaultReaderConfig()
	if p.Input.Sheet != "" {
		cfg.Sheet = p.Input.Sheet
	}
	if p.Input.MissingTokens != nil {
		cfg.MissingTokens = p.Input.MissingTokens
	}
	cfg.Categorical = p.Input.Categorical
	source, err := SourceForPath(p.Input.Path, cfg)
	if err != nil {
		return nil, err
	}
	table, err := source.ReadTable(ctx)
	if err != nil {
		return nil, err
	}

	result, err := r.compute(ctx, p, table)
	if err != nil {
		return nil, err
	}
	if err := r.writeOutputs(ctx, p, result); err != nil {
		return nil, err
	}
	if p.Store {
		if err := r.store(ctx, p, result); err != nil {
			return nil, err
		}
		result.Stored = true
	}

	result.RuntimeMs = time.Since(startTime).Milliseconds()
	r.logger.Info("[PlanRunner] plan %s finished: run %s, %d outputs in %dms",
		p.Name, result.RunID, len(result.Outputs), result.RuntimeMs)
	return result, nil
}

func (r *PlanRunner) compute(ctx context.Context, p *plan.Plan, table *survey.Table) (*PlanResult, error) {
	estimator, err := weighted.EstimatorByName(p.Estimator)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	service := r.service
	if p.Estimator != "" && estimator.Name() != service.EstimatorName() {
		service = NewSurveyService(ServiceOptions{
			Estimator:       estimator,
			Workers:         service.aggregator.Workers(),
			MinN:            service.minN,
			ConfidenceLevel: service.level,
			Logger:          r.logger,
		})
	}

	result := &PlanResult{RunID: core.NewRunID(), Plan: p.Name}
	if len(p.Indicators) > 0 {
		for _, g := range p.Groupings {
			rows, err := service.Summarize(ctx, table, SummaryRequest{
				Roles:           survey.ColumnRoles{Weight: p.Weight, Indicators: p.Indicators, GroupBy: g.By},
				ConfidenceLevel: p.ConfidenceLevel,
				MinN:            p.MinN,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "grouping %s", g.Name)
			}
			result.Summaries = append(result.Summaries, NamedSummary{Name: g.Name, GroupBy: g.By, Rows: rows})
		}
	}

	for _, c := range p.Crosstabs {
		mode, err := weighted.ParseNormalizeMode(c.Normalize)
		if err != nil {
			return nil, err
		}
		cells, err := service.Crosstab(ctx, table, weighted.CrosstabSpec{
			Row: c.Row, Col: c.Col, Value: c.Value, Weight: p.Weight, Normalize: mode,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "crosstab %s", c.Name)
		}
		result.Crosstabs = append(result.Crosstabs, NamedCrosstab{Name: c.Name, Cells: cells})
	}

	if p.DesignEffect {
		deff, err := service.DesignEffect(table, p.Weight)
		if err != nil {
			return nil, errors.Wrap(err, "design effect")
		}
		result.DesignEffect = deff
	}
	return result, nil
}

// writeOutputs writes one file per result for tabular formats and a single
// combined report for Markdown and HTML.
func (r *PlanRunner) writeOutputs(ctx context.Context, p *plan.Plan, result *PlanResult) error {
	for _, format := range p.Outputs.Formats {
		if format == plan.FormatMarkdown || format == plan.FormatHTML {
			path := p.OutputPath("report", format)
			report := r.buildReport(p, result)
			var err error
			if format == plan.FormatHTML {
				err = report.WriteHTML(path)
			} else {
				err = report.WriteMarkdown(path)
			}
			if err != nil {
				return errors.Wrapf(err, "failed to write %s", path)
			}
			result.Outputs = append(result.Outputs, path)
			continue
		}

		for _, s := range result.Summaries {
			path := p.OutputPath(s.Name, format)
			sink, err := SinkForPath(path, outputTitle(p.Name, s.Name))
			if err != nil {
				return err
			}
			if err := sink.WriteSummary(ctx, s.Rows); err != nil {
				return errors.Wrapf(err, "failed to write %s", path)
			}
			result.Outputs = append(result.Outputs, path)
		}
		for _, c := range result.Crosstabs {
			path := p.OutputPath(c.Name, format)
			sink, err := SinkForPath(path, outputTitle(p.Name, c.Name))
			if err != nil {
				return err
			}
			if err := sink.WriteCrosstab(ctx, c.Cells); err != nil {
				return errors.Wrapf(err, "failed to write %s", path)
			}
			result.Outputs = append(result.Outputs, path)
		}
	}
	return nil
}

func (r *PlanRunner) buildReport(p *plan.Plan, result *PlanResult) *export.Report {
	report := export.NewReport(p.Name)
	report.AddNote(fmt.Sprintf("Run %s. Intervals use the normal approximation at level %g; rows with n < %d are flagged as small samples.",
		result.RunID, p.ConfidenceLevel, p.MinN))
	for _, s := range result.Summaries {
		report.AddSummary(s.Name, s.Rows)
	}
	for _, c := range result.Crosstabs {
		report.AddCrosstab(c.Name, c.Cells)
	}
	if d := result.DesignEffect; d != nil {
		report.AddNote(fmt.Sprintf("Design effect of %s: %.4f (n = %d, effective n = %.1f).", d.Column, d.DesignEffect, d.N, d.EffectiveN))
	}
	return report
}

func (r *PlanRunner) store(ctx context.Context, p *plan.Plan, result *PlanResult) error {
	var all []survey.SummaryRow
	for _, s := range result.Summaries {
		all = append(all, s.Rows...)
	}
	crosstabs := make([]ports.CrosstabResult, 0, len(result.Crosstabs))
	for _, c := range result.Crosstabs {
		crosstabs = append(crosstabs, ports.CrosstabResult{Name: c.Name, Cells: c.Cells})
	}
	return r.results.SaveRun(ctx, ports.RunRecord{
		ID:     result.RunID,
		Label:  p.Name,
		Source: p.Input.Path,
	}, all, crosstabs)
}
