package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"surveystats/adapters/stats/profile"
	"surveystats/app"
	"surveystats/domain/survey"
	"surveystats/ports"

	"github.com/fatih/color"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	warnColor   = color.New(color.FgYellow)
)

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printHeader(tw *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(tw, headerColor.Sprint(strings.Join(cols, "\t")))
}

func printSummary(w io.Writer, rows []survey.SummaryRow) {
	tw := newTabWriter(w)
	printHeader(tw, "indicator", "group", "mean", "se", "median", "n", "weight", "ci")
	for _, r := range rows {
		group := "national"
		if len(r.GroupColumns) > 0 {
			parts := make([]string, len(r.GroupColumns))
			for i, col := range r.GroupColumns {
				parts[i] = col + "=" + r.Group[i]
			}
			group = strings.Join(parts, ",")
		}
		ci := "-"
		if r.CI != nil {
			ci = fmt.Sprintf("[%s, %s]", num(r.CI.Lower), num(r.CI.Upper))
		}
		line := strings.Join([]string{
			r.Indicator, group, num(r.WeightedMean), num(r.SE), num(r.WeightedMedian),
			strconv.Itoa(r.N), num(r.TotalWeight), ci,
		}, "\t")
		if r.IsSmallSample() {
			line = warnColor.Sprint(line + "\tsmall sample")
		}
		fmt.Fprintln(tw, line)
	}
	_ = tw.Flush()
}

func printCrosstab(w io.Writer, cells []survey.CrosstabCell) {
	tw := newTabWriter(w)
	printHeader(tw, "row", "col", "value", "weighted_mean", "n")
	for _, c := range cells {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", c.Row, c.Col, num(c.Value), num(c.WeightedMean), c.N)
	}
	_ = tw.Flush()
}

func printDesignEffect(w io.Writer, res *app.DesignEffectResult) {
	tw := newTabWriter(w)
	printHeader(tw, "column", "n", "effective_n", "design_effect")
	fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", res.Column, res.N, num(res.EffectiveN), num(res.DesignEffect))
	_ = tw.Flush()
}

func printProfile(w io.Writer, p *profile.TableProfile) {
	fmt.Fprintf(w, "%d rows, %d columns\n", p.Rows, len(p.Columns))
	tw := newTabWriter(w)
	printHeader(tw, "column", "kind", "present", "missing", "mean", "sd", "min", "median", "max", "levels")
	for _, c := range p.Columns {
		if c.Kind == survey.KindNumeric {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t-\n",
				c.Name, c.Kind, c.Present, c.Missing, num(c.Mean), num(c.StdDev), num(c.Min), num(c.Median), num(c.Max))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t-\t-\t-\t-\t-\t%d\n", c.Name, c.Kind, c.Present, c.Missing, c.Levels)
	}
	_ = tw.Flush()

	if p.Weight != nil {
		fmt.Fprintf(w, "\nweight %s: sum %s, effective n %s, design effect %s\n",
			p.Weight.Column, num(p.Weight.Sum), num(p.Weight.EffectiveN), num(p.Weight.DesignEffect))
	}
}

func printRuns(w io.Writer, runs []ports.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs stored")
		return
	}
	tw := newTabWriter(w)
	printHeader(tw, "id", "label", "source", "created")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Label, r.Source, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = tw.Flush()
}
