package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"surveystats/app"
	"surveystats/domain/survey"
	"surveystats/internal/errors"
	"surveystats/ports"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestPrintSummary(t *testing.T) {
	small := true
	rows := []survey.SummaryRow{
		{Indicator: "literate", WeightedMean: 0.5, SE: 0.1, N: 10, TotalWeight: 12},
		{
			Indicator:    "literate",
			GroupColumns: []string{"region"},
			Group:        survey.GroupKey{"north"},
			WeightedMean: 0.25,
			N:            4,
			CI:           &survey.Interval{Level: 0.95, Lower: 0.1, Upper: 0.4},
			SmallSample:  &small,
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, rows)
	out := buf.String()

	assert.Contains(t, out, "national")
	assert.Contains(t, out, "region=north")
	assert.Contains(t, out, "[0.1000, 0.4000]")
	assert.Contains(t, out, "small sample")
}

func TestPrintCrosstabAndDesignEffect(t *testing.T) {
	var buf bytes.Buffer
	printCrosstab(&buf, []survey.CrosstabCell{{Row: "f", Col: "urban", Value: 0.75, WeightedMean: 0.75, N: 3}})
	printDesignEffect(&buf, &app.DesignEffectResult{Column: "w", N: 4, EffectiveN: 3.2, DesignEffect: 1.25})

	out := buf.String()
	assert.Contains(t, out, "urban")
	assert.Contains(t, out, "0.7500")
	assert.Contains(t, out, "1.2500")
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	printRuns(&buf, nil)
	assert.Contains(t, buf.String(), "no runs stored")

	buf.Reset()
	printRuns(&buf, []ports.RunRecord{{ID: "run-1", Label: "wave1", Source: "a.csv", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}})
	assert.Contains(t, buf.String(), "2024-01-02 03:04:05")
}

func TestCommandArgsValidation(t *testing.T) {
	c := &cli{}
	cmd := newRootCmd(c)
	cmd.SetArgs([]string{"aggregate", "--weight", "w", "--indicator", "x"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestUnknownFlagIsInvalidInput(t *testing.T) {
	c := &cli{}
	cmd := newRootCmd(c)
	cmd.SetArgs([]string{"deff", "a.csv", "--bogus"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestMissingRequiredFlag(t *testing.T) {
	c := &cli{}
	cmd := newRootCmd(c)
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "none.env"), "deff", "a.csv"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.Contains(t, err.Error(), "--weight")
}

func TestAggregateCommandWritesCSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(input, []byte("region,w,x\nn,1,1\nn,1,0\ns,2,1\n"), 0o644))
	out := filepath.Join(dir, "out.csv")

	c := &cli{}
	cmd := newRootCmd(c)
	cmd.SetArgs([]string{
		"--env-file", filepath.Join(dir, "none.env"), "--log-level", "error",
		"aggregate", input, "--weight", "w", "--indicator", "x", "--by", "region", "--out", out,
	})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "indicator,region,weighted_mean")
	assert.Contains(t, string(data), "x,n,0.5")
	assert.Contains(t, string(data), "x,s,1")
}

func TestCrosstabCommandFoldsNormalizeCase(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(input, []byte("region,arm,w,x\nn,a,1,1\nn,a,1,0\ns,a,2,1\n"), 0o644))
	out := filepath.Join(dir, "cells.csv")

	cmd := newRootCmd(&cli{})
	cmd.SetArgs([]string{
		"--env-file", filepath.Join(dir, "none.env"), "--log-level", "error",
		"crosstab", input, "--row", "region", "--col", "arm", "--value", "x", "--weight", "w",
		"--normalize", " ROW ", "--out", out,
	})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "row,col,value,weighted_mean,n")
	assert.Contains(t, string(data), "n,a,1,0.5,2")
}
