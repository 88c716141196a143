package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"surveystats/adapters/excel"
	"surveystats/adapters/sqlstore"
	"surveystats/adapters/stats/weighted"
	"surveystats/app"
	"surveystats/domain/survey"
	"surveystats/internal/api"
	"surveystats/internal/errors"
	"surveystats/internal/plan"
	"surveystats/ports"

	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

// inputFlags are shared by every command that reads a table
type inputFlags struct {
	sheet       string
	categorical []string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "XLSX sheet to read (default SURVEY_SHEET)")
	cmd.Flags().StringSliceVar(&f.categorical, "categorical", nil, "columns to read as categorical even when numeric")
}

func (c *cli) readTable(ctx context.Context, path string, f inputFlags) (*survey.Table, error) {
	cfg := excel.ReaderConfig{
		Sheet:         c.cfg.Input.Sheet,
		MissingTokens: c.cfg.Input.MissingTokens,
		Categorical:   f.categorical,
	}
	if f.sheet != "" {
		cfg.Sheet = f.sheet
	}
	source, err := app.SourceForPath(path, cfg)
	if err != nil {
		return nil, err
	}
	if r, ok := source.(*excel.DataReader); ok {
		r.WithLogger(c.logger)
	}
	return source.ReadTable(ctx)
}

func (c *cli) service(estimator string) (*app.SurveyService, error) {
	cfg := *c.cfg
	if estimator != "" {
		cfg.Analysis.SEEstimator = estimator
	}
	svc, err := app.NewSurveyServiceFromConfig(&cfg, c.logger)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err)
	}
	return svc, nil
}

// openStore opens the configured result store, or returns nil when no
// DATABASE_URL is set.
func (c *cli) openStore(ctx context.Context) (*sqlx.DB, ports.ResultRepository, error) {
	if c.cfg.Database.URL == "" {
		return nil, nil, nil
	}
	db, err := sqlstore.Open(ctx, c.cfg.Database.Driver, c.cfg.Database.URL, c.logger)
	if err != nil {
		return nil, nil, err
	}
	return db, sqlstore.NewResultRepository(db), nil
}

func newAggregateCmd(c *cli) *cobra.Command {
	var in inputFlags
	var weight, out, estimator string
	var indicators, groupBy []string
	var level float64
	var minN int
	var noCI bool

	cmd := &cobra.Command{
		Use:   "aggregate [file]",
		Short: "Weighted mean, SE, median, n and total weight per indicator and group",
		Long: `Aggregate one or more indicators of a CSV or XLSX survey file.

Rows get a normal-approximation confidence interval and are flagged when
their unweighted n is below --min-n.

Example: surveystats aggregate survey.csv --weight wgt --indicator literate --by region --out region.xlsx`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "weight", "indicator"); err != nil {
				return err
			}
			table, err := c.readTable(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			svc, err := c.service(estimator)
			if err != nil {
				return err
			}
			rows, err := svc.Summarize(cmd.Context(), table, app.SummaryRequest{
				Roles:           survey.ColumnRoles{Weight: weight, Indicators: indicators, GroupBy: groupBy},
				ConfidenceLevel: level,
				MinN:            minN,
				SkipIntervals:   noCI,
			})
			if err != nil {
				return err
			}
			if out != "" {
				return writeSummary(cmd.Context(), out, rows)
			}
			printSummary(os.Stdout, rows)
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().StringVar(&weight, "weight", "", "weight column (required)")
	cmd.Flags().StringSliceVar(&indicators, "indicator", nil, "indicator column, repeatable (required)")
	cmd.Flags().StringSliceVar(&groupBy, "by", nil, "group-by column, repeatable")
	cmd.Flags().Float64Var(&level, "level", 0, "confidence level (default SURVEY_CONFIDENCE_LEVEL)")
	cmd.Flags().IntVar(&minN, "min-n", 0, "small-sample threshold (default SURVEY_MIN_N)")
	cmd.Flags().BoolVar(&noCI, "no-ci", false, "skip confidence intervals")
	cmd.Flags().StringVar(&estimator, "estimator", "", "standard error estimator: linearization or kish")
	cmd.Flags().StringVar(&out, "out", "", "write results to .csv, .json, .xlsx, .md or .html instead of stdout")

	return cmd
}

func newCrosstabCmd(c *cli) *cobra.Command {
	var in inputFlags
	var spec weighted.CrosstabSpec
	var normalize, out string

	cmd := &cobra.Command{
		Use:   "crosstab [file]",
		Short: "Weighted mean of a value cross-classified by two columns",
		Long: `Cross-tabulate the weighted mean of --value by --row and --col.

--normalize rescales cells to sum to 1 over the whole table (all), within
each row (row) or within each column (col).

Example: surveystats crosstab survey.csv --row sex --col area --value literate --weight wgt --normalize row`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "row", "col", "value", "weight"); err != nil {
				return err
			}
			mode, err := weighted.ParseNormalizeMode(strings.ToLower(strings.TrimSpace(normalize)))
			if err != nil {
				return err
			}
			spec.Normalize = mode
			table, err := c.readTable(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			svc, err := c.service("")
			if err != nil {
				return err
			}
			cells, err := svc.Crosstab(cmd.Context(), table, spec)
			if err != nil {
				return err
			}
			if out != "" {
				return writeCrosstab(cmd.Context(), out, cells)
			}
			printCrosstab(os.Stdout, cells)
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().StringVar(&spec.Row, "row", "", "row category column (required)")
	cmd.Flags().StringVar(&spec.Col, "col", "", "column category column (required)")
	cmd.Flags().StringVar(&spec.Value, "value", "", "value column (required)")
	cmd.Flags().StringVar(&spec.Weight, "weight", "", "weight column (required)")
	cmd.Flags().StringVar(&normalize, "normalize", "none", "normalization: none, all, row, col")
	cmd.Flags().StringVar(&out, "out", "", "write cells to .csv, .json, .xlsx, .md or .html instead of stdout")

	return cmd
}

func newDeffCmd(c *cli) *cobra.Command {
	var in inputFlags
	var weight string

	cmd := &cobra.Command{
		Use:   "deff [file]",
		Short: "Design effect and effective sample size of a weight column",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "weight"); err != nil {
				return err
			}
			table, err := c.readTable(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			svc, err := c.service("")
			if err != nil {
				return err
			}
			res, err := svc.DesignEffect(table, weight)
			if err != nil {
				return err
			}
			printDesignEffect(os.Stdout, res)
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().StringVar(&weight, "weight", "", "weight column (required)")

	return cmd
}

func newProfileCmd(c *cli) *cobra.Command {
	var in inputFlags
	var weight string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "profile [file]",
		Short: "Unweighted per-column summary and weight diagnostics",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := c.readTable(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			svc, err := c.service("")
			if err != nil {
				return err
			}
			p, err := svc.Profile(table, weight)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			printProfile(os.Stdout, p)
			return nil
		},
	}

	in.register(cmd)
	cmd.Flags().StringVar(&weight, "weight", "", "weight column to diagnose")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}

func newRunCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [plan.yaml]",
		Short: "Execute an analysis plan",
		Long: `Execute a YAML analysis plan: read the input, compute every grouping,
crosstab and design effect, then write the requested outputs. Nothing is
written unless every computation succeeds. With store: true the run is
also saved to DATABASE_URL.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}
			svc, err := c.service("")
			if err != nil {
				return err
			}
			var results ports.ResultRepository
			if p.Store {
				db, repo, err := c.openStore(cmd.Context())
				if err != nil {
					return err
				}
				if db != nil {
					defer db.Close()
					results = repo
				}
			}

			res, err := app.NewPlanRunner(svc, results, c.logger).Run(cmd.Context(), p)
			if err != nil {
				return err
			}

			color.Green("Plan %s finished (run %s)", p.Name, res.RunID)
			for _, path := range res.Outputs {
				fmt.Printf("  wrote %s\n", path)
			}
			if res.Stored {
				fmt.Printf("  stored run %s\n", res.RunID)
			}
			return nil
		},
	}
	return cmd
}

func newRunsCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs saved in the result store",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, repo, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if db == nil {
				return errors.ConfigInvalid("DATABASE_URL is not set")
			}
			defer db.Close()

			runs, err := repo.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRuns(os.Stdout, runs)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 for all)")
	return cmd
}

func newServeCmd(c *cli) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the estimators over HTTP",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service("")
			if err != nil {
				return err
			}
			db, repo, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			server := api.NewServer(api.ServerOptions{
				Service:      svc,
				Results:      repo,
				Logger:       c.logger,
				GinMode:      c.cfg.Server.GinMode,
				MaxBodyBytes: c.cfg.Server.MaxBodyBytes,
			})
			if port == "" {
				port = c.cfg.Server.Port
			}
			return server.Start(cmd.Context(), ":"+port, c.cfg.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (default PORT)")
	return cmd
}

func writeSummary(ctx context.Context, path string, rows []survey.SummaryRow) error {
	sink, err := app.SinkForPath(path, "Weighted summary")
	if err != nil {
		return err
	}
	if err := sink.WriteSummary(ctx, rows); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	color.Green("Wrote %d rows to %s", len(rows), path)
	return nil
}

func writeCrosstab(ctx context.Context, path string, cells []survey.CrosstabCell) error {
	sink, err := app.SinkForPath(path, "Crosstab")
	if err != nil {
		return err
	}
	if err := sink.WriteCrosstab(ctx, cells); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	color.Green("Wrote %d cells to %s", len(cells), path)
	return nil
}

// requireFlags reports unset required flags as INVALID_INPUT.
func requireFlags(cmd *cobra.Command, names ...string) error {
	var missing []string
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return errors.InvalidInput(fmt.Sprintf("required flag(s) %s not set", strings.Join(missing, ", ")))
	}
	return nil
}
