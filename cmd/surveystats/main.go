package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"surveystats/internal"
	"surveystats/internal/config"
	"surveystats/internal/errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// cli carries state shared by every subcommand
type cli struct {
	envFile  string
	logLevel string

	cfg    *config.Config
	logger *internal.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	rootCmd := newRootCmd(c)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		if c.logger != nil {
			_ = c.logger.Sync()
		}
		stop()
		os.Exit(1)
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "surveystats",
		Short:         "Weighted survey estimates, crosstabs and design effects",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			if c.envFile != "" {
				files = append(files, c.envFile)
			}
			cfg, err := config.Load(files...)
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.LogLevel = c.logLevel
			}
			c.cfg = cfg
			c.logger = internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
			return nil
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.WithCode(errors.CodeInvalidInput, err)
	})
	rootCmd.PersistentFlags().StringVar(&c.envFile, "env-file", "", "environment file to load (default .env when present)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: error, warn, info, debug, trace (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		newAggregateCmd(c),
		newCrosstabCmd(c),
		newDeffCmd(c),
		newProfileCmd(c),
		newRunCmd(c),
		newRunsCmd(c),
		newServeCmd(c),
	)
	return rootCmd
}

// exactArgs is cobra.ExactArgs reporting INVALID_INPUT.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return errors.WithCode(errors.CodeInvalidInput, err)
		}
		return nil
	}
}

// printError reports err as "error [CODE]: message" on stderr.
func printError(err error) {
	red := color.New(color.FgRed, color.Bold)
	_, _ = red.Fprintf(os.Stderr, "error [%s]", errors.GetCode(err))
	fmt.Fprintf(os.Stderr, ": %v\n", err)
}
