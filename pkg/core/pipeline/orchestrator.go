package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"generational_accounting/pkg/core/assumption"
	"generational_accounting/pkg/core/cohort"
	"generational_accounting/pkg/core/liability"
	"generational_accounting/pkg/core/projection"
	"generational_accounting/pkg/core/store"
	"generational_accounting/pkg/core/valuation"

	"github.com/google/uuid"
)

// NetTransfersColumn is the column built from a scenario's taxes and payments.
const NetTransfersColumn = "net_transfers"

var (
	ErrNoInputs        = errors.New("pipeline: population and profiles are required")
	ErrCohortsNotBuilt = errors.New("pipeline: cohorts not created for scenario")
	ErrNoPresentValues = errors.New("pipeline: present values not computed for scenario")
	ErrNoColumnToValue = errors.New("pipeline: no column to value and no taxes or payments to net")
)

// Inputs are the observed data shared by every scenario. Tables are
// immutable, so scenarios never alias each other's results.
type Inputs struct {
	Population *cohort.Table
	Profile    *projection.Profile
}

// Run is the state of one scenario as it moves through the pipeline
// population -> fill -> project tax -> present value -> liability. A stored
// Run is never modified; each stage stores a new one.
type Run struct {
	ID            string
	Scenario      assumption.ScenarioParameters
	Cohorts       *cohort.Table
	Column        string
	PresentValues *valuation.Result
	CreatedAt     time.Time
}

// Simulation runs named scenarios over the same inputs.
type Simulation struct {
	ID        string
	inputs    Inputs
	scenarios *assumption.ScenarioSet
	repo      store.ResultRepository
	logger    *slog.Logger

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewSimulation checks the inputs. Scenarios are run on demand by name.
func NewSimulation(inputs Inputs, scenarios *assumption.ScenarioSet) (*Simulation, error) {
	if inputs.Population == nil || inputs.Profile == nil {
		return nil, ErrNoInputs
	}
	return &Simulation{
		ID:        uuid.New().String(),
		inputs:    inputs,
		scenarios: scenarios,
		logger:    slog.Default(),
		runs:      make(map[string]*Run),
	}, nil
}

// SetRepository enables persistence of run summaries.
func (s *Simulation) SetRepository(repo store.ResultRepository) {
	s.repo = repo
}

func (s *Simulation) SetLogger(l *slog.Logger) {
	s.logger = l
}

// Scenarios lists the scenario names.
func (s *Simulation) Scenarios() []string { return s.scenarios.Names() }

func (s *Simulation) run(name string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCohortsNotBuilt, name)
	}
	return r, nil
}

func (s *Simulation) withPresentValues(name string) (*Run, error) {
	r, err := s.run(name)
	if err != nil {
		return nil, err
	}
	if r.PresentValues == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoPresentValues, name)
	}
	return r, nil
}

// Cohorts returns the projected table of a scenario.
func (s *Simulation) Cohorts(name string) (*cohort.Table, error) {
	r, err := s.run(name)
	if err != nil {
		return nil, err
	}
	return r.Cohorts, nil
}

// =============================================================================
// STAGES
// =============================================================================

// CreateCohorts projects population, fills the profiles, projects them with
// the scenario's tax method and nets taxes and payments when given.
func (s *Simulation) CreateCohorts(ctx context.Context, name string) (*cohort.Table, error) {
	params, err := s.scenarios.Get(name)
	if err != nil {
		return nil, err
	}
	log := s.logger.With("simulation", s.ID, "scenario", name)

	pop, err := projection.ProjectPopulation(s.inputs.Population, params.Population())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filled, err := projection.FillProfiles(pop, s.inputs.Profile, projection.FillOptions{})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	projected, err := projection.ProjectTax(filled, params.Tax())
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(params.Taxes)+len(params.Payments) > 0 {
		projected, err = projected.ComputeNetTransfers(NetTransfersColumn, params.Taxes, params.Payments)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", name, err)
		}
	}

	s.mu.Lock()
	s.runs[name] = &Run{ID: uuid.New().String(), Scenario: params, Cohorts: projected, CreatedAt: time.Now()}
	s.mu.Unlock()

	log.Info("cohorts created",
		"rows", projected.Len(),
		"year_min", projected.YearMin(),
		"year_max", projected.YearMax(),
		"tax_method", params.TaxMethod.String())
	return projected, nil
}

// CreatePresentValues values column (or the net transfers when empty) at
// the scenario's discount rate.
func (s *Simulation) CreatePresentValues(ctx context.Context, name, column string) (*valuation.Result, error) {
	r, err := s.run(name)
	if err != nil {
		return nil, err
	}
	if column == "" {
		if !r.Cohorts.HasColumn(NetTransfersColumn) {
			return nil, fmt.Errorf("scenario %s: %w", name, ErrNoColumnToValue)
		}
		column = NetTransfersColumn
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pv, err := valuation.PresentValues(r.Cohorts, column, valuation.WithDiscountRate(r.Scenario.DiscountRate))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}

	next := *r
	next.Column = column
	next.PresentValues = pv
	s.mu.Lock()
	s.runs[name] = &next
	s.mu.Unlock()

	s.logger.Info("present values computed", "simulation", s.ID, "scenario", name, "column", column,
		"discount_rate", r.Scenario.DiscountRate)
	return pv, nil
}

// ApplyShock transforms a column of one scenario's cohorts, for instance a
// tax reform on some ages. Present values of that scenario are dropped and
// must be recomputed; other scenarios are untouched.
func (s *Simulation) ApplyShock(name, column string, sel cohort.Selector, fn func(cohort.Key, float64) float64) error {
	r, err := s.run(name)
	if err != nil {
		return err
	}
	shocked, err := r.Cohorts.Update(column, sel, fn)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", name, err)
	}
	if column != NetTransfersColumn && shocked.HasColumn(NetTransfersColumn) {
		shocked, err = shocked.Drop(NetTransfersColumn).ComputeNetTransfers(NetTransfersColumn, r.Scenario.Taxes, r.Scenario.Payments)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}
	}

	next := *r
	next.Cohorts = shocked
	next.PresentValues = nil
	s.mu.Lock()
	s.runs[name] = &next
	s.mu.Unlock()
	s.logger.Info("shock applied", "simulation", s.ID, "scenario", name, "column", column)
	return nil
}

// =============================================================================
// LIABILITY
// =============================================================================

func (s *Simulation) analyzer(name string) (*Run, *liability.Analyzer, error) {
	r, err := s.withPresentValues(name)
	if err != nil {
		return nil, nil, err
	}
	a, err := liability.NewAnalyzer(r.PresentValues)
	if err != nil {
		return nil, nil, err
	}
	return r, a, nil
}

// ComputeIPL uses the scenario's net wealth and spendings.
func (s *Simulation) ComputeIPL(name string) (liability.IPL, error) {
	r, a, err := s.analyzer(name)
	if err != nil {
		return liability.IPL{}, err
	}
	return a.ComputeIPL(r.Scenario.NetGovWealth, r.Scenario.SpendingsValue(r.Cohorts.YearMin()))
}

func (s *Simulation) ComputeIPLPrecision(name string) (float64, error) {
	r, a, err := s.analyzer(name)
	if err != nil {
		return 0, err
	}
	return a.ComputeIPLPrecision(r.Scenario.NetGovWealth, r.Scenario.SpendingsValue(r.Cohorts.YearMin()))
}

func (s *Simulation) ComputeGenImbalance(name string) (liability.Imbalance, error) {
	r, a, err := s.analyzer(name)
	if err != nil {
		return liability.Imbalance{}, err
	}
	p := r.Scenario
	return a.ComputeGenImbalance(p.NetGovWealth, p.SpendingsValue(r.Cohorts.YearMin()), p.GrowthRate, p.DiscountRate)
}

func (s *Simulation) BreakDownIPL(name string, threshold int) (*liability.BreakDown, error) {
	r, a, err := s.analyzer(name)
	if err != nil {
		return nil, err
	}
	return a.BreakDownIPL(r.Scenario.NetGovWealth, r.Scenario.SpendingsValue(r.Cohorts.YearMin()), threshold)
}

// AgeClasses returns the per-capita generational accounts of one year by
// age bands of width step. Year 0 means the first year.
func (s *Simulation) AgeClasses(name string, step, year int) (*cohort.Table, error) {
	r, err := s.withPresentValues(name)
	if err != nil {
		return nil, err
	}
	agg := r.PresentValues.Aggregate
	if year == 0 {
		year = agg.YearMin()
	}
	slice, err := agg.Filter(cohort.Selector{Years: []int{year}})
	if err != nil {
		return nil, fmt.Errorf("scenario %s: age classes for %d: %w", name, year, err)
	}
	return slice.AgeBucket(step, cohort.AggregateValues, r.Column)
}

// PresentValues returns the valued tables of a scenario.
func (s *Simulation) PresentValues(name string) (*valuation.Result, error) {
	r, err := s.withPresentValues(name)
	if err != nil {
		return nil, err
	}
	return r.PresentValues, nil
}

// GroupPresentValues sums a scenario's aggregate present values by the
// given dimensions.
func (s *Simulation) GroupPresentValues(name string, by ...cohort.Dimension) (*cohort.Grouped, error) {
	r, err := s.withPresentValues(name)
	if err != nil {
		return nil, err
	}
	g, err := r.PresentValues.Aggregate.GroupSum(r.Column, by...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	return g, nil
}
