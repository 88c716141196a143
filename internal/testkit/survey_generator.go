package testkit

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"

	"surveystats/domain/survey"
)

// SurveyGeneratorConfig configures the synthetic household survey generator
type SurveyGeneratorConfig struct {
	Respondents int      `json:"respondents"`
	Regions     []string `json:"regions"`
	MissingRate float64  `json:"missing_rate"` // Share of indicator cells left missing
	WeightSigma float64  `json:"weight_sigma"` // Log-normal spread of design weights
	Seed        int64    `json:"seed"`
}

// DefaultSurveyConfig returns sensible defaults for survey data generation
func DefaultSurveyConfig() SurveyGeneratorConfig {
	return SurveyGeneratorConfig{
		Respondents: 1000,
		Regions:     []string{"north", "south", "east", "west"},
		MissingRate: 0.05,
		WeightSigma: 0.4,
		Seed:        42,
	}
}

// Columns produced by the generator.
const (
	ColRegion   = "region"
	ColArea     = "area"
	ColSex      = "sex"
	ColAge      = "age"
	ColWeight   = "weight"
	ColLiterate = "literate"
	ColEmployed = "employed"
	ColIncome   = "income"
)

// SurveyGenerator generates respondent-level survey records with unequal
// design weights and region-dependent outcomes.
type SurveyGenerator struct {
	config SurveyGeneratorConfig
	rng    *rand.Rand
}

// NewSurveyGenerator creates a new survey generator
func NewSurveyGenerator(config SurveyGeneratorConfig) *SurveyGenerator {
	if len(config.Regions) == 0 {
		config.Regions = DefaultSurveyConfig().Regions
	}
	return &SurveyGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the observation table. The same seed always yields the
// same table.
func (g *SurveyGenerator) Generate() *survey.Table {
	n := g.config.Respondents
	region := make([]survey.Category, n)
	area := make([]survey.Category, n)
	sex := make([]survey.Category, n)
	age := make([]survey.Number, n)
	weight := make([]survey.Number, n)
	literate := make([]survey.Number, n)
	employed := make([]survey.Number, n)
	income := make([]survey.Number, n)

	for i := 0; i < n; i++ {
		r := g.rng.Intn(len(g.config.Regions))
		urban := g.rng.Float64() < 0.4
		region[i] = survey.Cat(g.config.Regions[r])
		if urban {
			area[i] = survey.Cat("urban")
		} else {
			area[i] = survey.Cat("rural")
		}
		if g.rng.Float64() < 0.5 {
			sex[i] = survey.Cat("female")
		} else {
			sex[i] = survey.Cat("male")
		}
		a := 15 + g.rng.Intn(50)
		age[i] = survey.Num(float64(a))

		// Rural respondents are under-sampled, so they carry larger weights.
		w := math.Exp(g.rng.NormFloat64() * g.config.WeightSigma)
		if !urban {
			w *= 1.5
		}
		weight[i] = survey.Num(math.Round(w*1000) / 1000)

		pLiterate := 0.55 + 0.08*float64(r%3)
		if urban {
			pLiterate += 0.2
		}
		literate[i] = g.maybeMissing(bernoulli(g.rng, pLiterate))
		employed[i] = g.maybeMissing(bernoulli(g.rng, 0.6))
		income[i] = g.maybeMissing(math.Round(math.Exp(7+g.rng.NormFloat64()*0.5+boolFloat(urban)*0.3)))
	}

	table := survey.NewTable(n)
	mustAdd(table.AddCategorical(ColRegion, region))
	mustAdd(table.AddCategorical(ColArea, area))
	mustAdd(table.AddCategorical(ColSex, sex))
	mustAdd(table.AddNumeric(ColAge, age))
	mustAdd(table.AddNumeric(ColWeight, weight))
	mustAdd(table.AddNumeric(ColLiterate, literate))
	mustAdd(table.AddNumeric(ColEmployed, employed))
	mustAdd(table.AddNumeric(ColIncome, income))
	return table
}

func (g *SurveyGenerator) maybeMissing(v float64) survey.Number {
	if g.rng.Float64() < g.config.MissingRate {
		return survey.Missing()
	}
	return survey.Num(v)
}

func bernoulli(rng *rand.Rand, p float64) float64 {
	if rng.Float64() < p {
		return 1
	}
	return 0
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func mustAdd(err error) {
	if err != nil {
		panic(fmt.Sprintf("testkit: %v", err))
	}
}

// WriteCSV writes table to path using "NA" for missing cells.
func WriteCSV(path string, table *survey.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	cols := table.Columns()
	if err := w.Write(cols); err != nil {
		return err
	}
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		rec := make([]string, len(cols))
		for j, c := range cols {
			if v := row[c]; v != "" {
				rec[j] = v
			} else {
				rec[j] = "NA"
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return file.Close()
}

// ConstantWeights returns a table with a single indicator column and a
// constant weight column, the simplest fixture for the weighted estimators.
func ConstantWeights(weight float64, values ...float64) *survey.Table {
	table := survey.NewTable(len(values))
	weights := make([]float64, len(values))
	for i := range weights {
		weights[i] = weight
	}
	mustAdd(table.AddNumeric("w", survey.Nums(weights...)))
	mustAdd(table.AddNumeric("x", survey.Nums(values...)))
	return table
}
