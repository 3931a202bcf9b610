// Package assumption holds the per-scenario macroeconomic and fiscal
// hypotheses that drive a generational accounting run.
package assumption

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"generational_accounting/pkg/core/projection"
)

var (
	ErrInvalidParameters = errors.New("assumption: invalid scenario parameters")
	ErrUnknownScenario   = errors.New("assumption: unknown scenario")
	ErrDuplicateScenario = errors.New("assumption: duplicate scenario")
)

// =============================================================================
// GOVERNMENT SPENDINGS
// =============================================================================

// SpendingsMode selects how net government spendings are turned into a
// present value.
type SpendingsMode string

const (
	// SpendingsScalar is already a present value.
	SpendingsScalar SpendingsMode = "scalar"
	// SpendingsAnnual is a first-year amount growing with productivity over
	// the horizon.
	SpendingsAnnual SpendingsMode = "annual"
	// SpendingsSeries is a year-by-year path discounted to the first year.
	SpendingsSeries SpendingsMode = "series"
)

// Spendings is net government spendings, a scalar or a time series.
type Spendings struct {
	Mode   SpendingsMode   `json:"mode" yaml:"mode"`
	Value  float64         `json:"value" yaml:"value"`
	Series map[int]float64 `json:"series,omitempty" yaml:"series,omitempty"`
}

// ScalarSpendings returns a spendings value used as is.
func ScalarSpendings(v float64) Spendings { return Spendings{Mode: SpendingsScalar, Value: v} }

// PresentValue converts the spendings into a first-year present value.
// Annual mode computes sum_{t=1..horizon} G * ((1+g)/(1+r))^t.
func (s Spendings) PresentValue(g, r float64, horizon, firstYear int) float64 {
	switch s.Mode {
	case SpendingsAnnual:
		var total float64
		ratio := (1 + g) / (1 + r)
		for t := 1; t <= horizon; t++ {
			total += s.Value * math.Pow(ratio, float64(t))
		}
		return total
	case SpendingsSeries:
		var total float64
		for year, v := range s.Series {
			total += v * math.Pow(1+r, -float64(year-firstYear))
		}
		return total
	default:
		return s.Value
	}
}

// =============================================================================
// SCENARIO PARAMETERS
// =============================================================================

// ScenarioParameters is the immutable hypothesis set of one scenario.
type ScenarioParameters struct {
	Name                 string                      `json:"name" yaml:"name"`
	GrowthRate           float64                     `json:"growth_rate" yaml:"growth_rate"`
	DiscountRate         float64                     `json:"discount_rate" yaml:"discount_rate"`
	PopulationGrowthRate float64                     `json:"population_growth_rate" yaml:"population_growth_rate"`
	InflationRate        *float64                    `json:"inflation_rate,omitempty" yaml:"inflation_rate,omitempty"`
	NetGovWealth         float64                     `json:"net_gov_wealth" yaml:"net_gov_wealth"`
	NetGovSpendings      Spendings                   `json:"net_gov_spendings" yaml:"net_gov_spendings"`
	YearLength           int                         `json:"year_length" yaml:"year_length"`
	ProjectionMethod     projection.PopulationMethod `json:"projection_method" yaml:"projection_method"`
	TaxMethod            projection.TaxMethod        `json:"tax_method" yaml:"tax_method"`
	// Taxes and Payments name the columns netted into the transfer column
	// and, under the desynchronized method, their indexation.
	Taxes    []string `json:"taxes,omitempty" yaml:"taxes,omitempty"`
	Payments []string `json:"payments,omitempty" yaml:"payments,omitempty"`
}

// Validate reports the first inconsistent field.
func (p ScenarioParameters) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidParameters)
	case p.YearLength <= 0:
		return fmt.Errorf("%w: %s: year_length must be positive", ErrInvalidParameters, p.Name)
	case p.GrowthRate <= -1, p.DiscountRate <= -1, p.PopulationGrowthRate <= -1:
		return fmt.Errorf("%w: %s: rates must be greater than -1", ErrInvalidParameters, p.Name)
	case p.TaxMethod == projection.Desynchronized && p.InflationRate == nil:
		return fmt.Errorf("%w: %s: desynchronized projection needs an inflation rate", ErrInvalidParameters, p.Name)
	}
	switch p.ProjectionMethod {
	case projection.HoldConstant, projection.ExpGrowth:
	default:
		return fmt.Errorf("%w: %s: %s", ErrInvalidParameters, p.Name, p.ProjectionMethod)
	}
	switch p.TaxMethod {
	case projection.PerCapita, projection.Aggregate, projection.Desynchronized:
	default:
		return fmt.Errorf("%w: %s: %s", ErrInvalidParameters, p.Name, p.TaxMethod)
	}
	return nil
}

// Population returns the population projection of the scenario.
func (p ScenarioParameters) Population() projection.PopulationProjection {
	return projection.PopulationProjection{
		YearLength: p.YearLength,
		Method:     p.ProjectionMethod,
		GrowthRate: projection.Rate(p.PopulationGrowthRate),
	}
}

// Tax returns the tax projection of the scenario for the given columns.
func (p ScenarioParameters) Tax(columns ...string) projection.TaxProjection {
	tp := projection.TaxProjection{
		Method:     p.TaxMethod,
		GrowthRate: projection.Rate(p.GrowthRate),
		Columns:    columns,
	}
	if p.InflationRate != nil {
		tp.InflationRate = projection.Rate(*p.InflationRate)
	}
	if p.TaxMethod == projection.Desynchronized {
		tp.Columns = slices.Clone(p.Taxes)
		tp.Payments = slices.Clone(p.Payments)
	}
	return tp
}

// SpendingsValue is the present value of net government spendings.
func (p ScenarioParameters) SpendingsValue(firstYear int) float64 {
	return p.NetGovSpendings.PresentValue(p.GrowthRate, p.DiscountRate, p.YearLength, firstYear)
}

// clone copies the reference fields so callers cannot reach shared state.
func (p ScenarioParameters) clone() ScenarioParameters {
	c := p
	c.Taxes = slices.Clone(p.Taxes)
	c.Payments = slices.Clone(p.Payments)
	if p.InflationRate != nil {
		c.InflationRate = projection.Rate(*p.InflationRate)
	}
	if p.NetGovSpendings.Series != nil {
		c.NetGovSpendings.Series = make(map[int]float64, len(p.NetGovSpendings.Series))
		for y, v := range p.NetGovSpendings.Series {
			c.NetGovSpendings.Series[y] = v
		}
	}
	return c
}

// =============================================================================
// SCENARIO SET
// =============================================================================

// ScenarioSet maps scenario names to parameters. There is no default
// scenario; every lookup names one.
type ScenarioSet struct {
	scenarios map[string]ScenarioParameters
}

func NewScenarioSet(params ...ScenarioParameters) (*ScenarioSet, error) {
	s := &ScenarioSet{scenarios: make(map[string]ScenarioParameters, len(params))}
	for _, p := range params {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.scenarios[p.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateScenario, p.Name)
		}
		s.scenarios[p.Name] = p.clone()
	}
	return s, nil
}

// Get returns a copy of the named scenario.
func (s *ScenarioSet) Get(name string) (ScenarioParameters, error) {
	p, ok := s.scenarios[name]
	if !ok {
		return ScenarioParameters{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	return p.clone(), nil
}

// Names returns the scenario names sorted.
func (s *ScenarioSet) Names() []string {
	names := make([]string, 0, len(s.scenarios))
	for n := range s.scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *ScenarioSet) Len() int { return len(s.scenarios) }
