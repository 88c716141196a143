// Package plan loads YAML analysis plans describing a full survey run:
// the input file, column roles, groupings, crosstabs and outputs.
package plan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"surveystats/adapters/stats/weighted"
	"surveystats/internal/errors"

	"gopkg.in/yaml.v3"
)

// Output formats a plan may request.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "md"
	FormatHTML     = "html"
)

var knownFormats = map[string]bool{
	FormatCSV: true, FormatJSON: true, FormatXLSX: true, FormatMarkdown: true, FormatHTML: true,
}

// Plan is a declarative analysis run.
type Plan struct {
	Name            string     `yaml:"name"`
	Input           Input      `yaml:"input"`
	Weight          string     `yaml:"weight"`
	Indicators      []string   `yaml:"indicators"`
	Groupings       []Grouping `yaml:"groupings"`
	Crosstabs       []Crosstab `yaml:"crosstabs"`
	ConfidenceLevel float64    `yaml:"confidence_level"`
	MinN            int        `yaml:"min_n"`
	Estimator       string     `yaml:"estimator"`
	DesignEffect    bool       `yaml:"design_effect"`
	Outputs         Outputs    `yaml:"outputs"`
	Store           bool       `yaml:"store"`
}

// Input names the observation table.
type Input struct {
	Path          string   `yaml:"path"`
	Sheet         string   `yaml:"sheet"`
	MissingTokens []string `yaml:"missing_tokens"`
	Categorical   []string `yaml:"categorical"`
}

// Grouping is one set of group-by columns; an empty By is the whole table.
type Grouping struct {
	Name string   `yaml:"name"`
	By   []string `yaml:"by"`
}

// Crosstab is one two-way breakdown.
type Crosstab struct {
	Name      string `yaml:"name"`
	Row       string `yaml:"row"`
	Col       string `yaml:"col"`
	Value     string `yaml:"value"`
	Normalize string `yaml:"normalize"`
}

// Outputs selects where and how results are written.
type Outputs struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

// Load reads and validates a plan file. Relative input and output paths are
// resolved against the plan file's directory.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read plan %s", path)
	}
	return Parse(bytes.NewReader(data), filepath.Dir(path))
}

// Parse decodes and validates a plan. Unknown keys are rejected.
func Parse(r io.Reader, baseDir string) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if err == io.EOF {
			return nil, errors.InvalidInput("plan is empty")
		}
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("invalid plan: %w", err))
	}
	p.applyDefaults()
	p.resolvePaths(baseDir)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) applyDefaults() {
	if p.ConfidenceLevel == 0 {
		p.ConfidenceLevel = weighted.DefaultConfidenceLevel
	}
	if p.MinN == 0 {
		p.MinN = weighted.DefaultMinN
	}
	if len(p.Groupings) == 0 {
		p.Groupings = []Grouping{{Name: "national"}}
	}
	if p.Outputs.Dir == "" {
		p.Outputs.Dir = "out"
	}
	if len(p.Outputs.Formats) == 0 {
		p.Outputs.Formats = []string{FormatCSV}
	}
	for i, f := range p.Outputs.Formats {
		p.Outputs.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
	for i := range p.Crosstabs {
		p.Crosstabs[i].Normalize = strings.ToLower(strings.TrimSpace(p.Crosstabs[i].Normalize))
	}
}

func (p *Plan) resolvePaths(baseDir string) {
	if baseDir == "" {
		return
	}
	if p.Input.Path != "" && !filepath.IsAbs(p.Input.Path) {
		p.Input.Path = filepath.Join(baseDir, p.Input.Path)
	}
	if !filepath.IsAbs(p.Outputs.Dir) {
		p.Outputs.Dir = filepath.Join(baseDir, p.Outputs.Dir)
	}
}

// Validate checks the plan is complete and internally consistent.
func (p *Plan) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	if p.Input.Path == "" {
		problems = append(problems, "input.path is required")
	}
	if p.Weight == "" {
		problems = append(problems, "weight is required")
	}
	if len(p.Indicators) == 0 && len(p.Crosstabs) == 0 && !p.DesignEffect {
		problems = append(problems, "plan computes nothing: list indicators, crosstabs or design_effect")
	}
	if len(p.Indicators) > 0 {
		seen := make(map[string]bool)
		for _, g := range p.Groupings {
			if g.Name == "" {
				problems = append(problems, "grouping name is required")
			} else if seen[g.Name] {
				problems = append(problems, fmt.Sprintf("duplicate grouping %q", g.Name))
			}
			seen[g.Name] = true
		}
	}
	seen := make(map[string]bool)
	for _, c := range p.Crosstabs {
		switch {
		case c.Name == "":
			problems = append(problems, "crosstab name is required")
		case seen[c.Name]:
			problems = append(problems, fmt.Sprintf("duplicate crosstab %q", c.Name))
		case c.Row == "" || c.Col == "" || c.Value == "":
			problems = append(problems, fmt.Sprintf("crosstab %q needs row, col and value", c.Name))
		}
		seen[c.Name] = true
		if _, err := weighted.ParseNormalizeMode(c.Normalize); err != nil {
			problems = append(problems, fmt.Sprintf("crosstab %q: %v", c.Name, err))
		}
	}
	if _, err := weighted.ZScore(p.ConfidenceLevel); err != nil {
		problems = append(problems, fmt.Sprintf("confidence_level: %v", err))
	}
	if p.MinN < 0 {
		problems = append(problems, "min_n must not be negative")
	}
	if _, err := weighted.EstimatorByName(p.Estimator); err != nil {
		problems = append(problems, fmt.Sprintf("estimator: %v", err))
	}
	for _, f := range p.Outputs.Formats {
		if !knownFormats[f] {
			problems = append(problems, fmt.Sprintf("unknown output format %q", f))
		}
	}
	if len(problems) > 0 {
		return errors.InvalidInput("invalid plan: " + strings.Join(problems, "; "))
	}
	return nil
}

// OutputPath returns the output file for a result name and format.
func (p *Plan) OutputPath(name, format string) string {
	return filepath.Join(p.Outputs.Dir, fmt.Sprintf("%s.%s", name, format))
}
