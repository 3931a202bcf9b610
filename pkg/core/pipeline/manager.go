package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"generational_accounting/pkg/core/assumption"
	"generational_accounting/pkg/core/report"
	"generational_accounting/pkg/core/store"
	"generational_accounting/pkg/models"
)

// DefaultCapacity is the number of run summaries a Manager keeps in memory.
const DefaultCapacity = 256

var ErrInvalidRequest = errors.New("pipeline: invalid simulation request")

// Manager runs simulations from requests and keeps the most recent run
// summaries for lookup by ID. Simulations themselves are dropped once their
// response is built; older summaries are served by the repository.
type Manager struct {
	repo     store.ResultRepository
	logger   *slog.Logger
	capacity int

	mu    sync.RWMutex
	runs  map[string]*models.RunSummary
	order []string
}

// NewManager returns a manager. repo may be nil, in which case only the
// most recent summaries can be looked up.
func NewManager(repo store.ResultRepository, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:     repo,
		logger:   logger,
		capacity: DefaultCapacity,
		runs:     make(map[string]*models.RunSummary),
	}
}

// SetCapacity bounds the in-memory summaries; 0 keeps none.
func (m *Manager) SetCapacity(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacity = max(n, 0)
	m.evict()
}

// Build converts a request into a simulation without running it.
func (m *Manager) Build(req models.SimulationRequest) (*Simulation, error) {
	if len(req.Population) == 0 || len(req.Profiles) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, ErrNoInputs)
	}
	if len(req.Scenarios) == 0 {
		return nil, fmt.Errorf("%w: no scenarios", ErrInvalidRequest)
	}
	pop, err := models.PopulationTable(req.Population)
	if err != nil {
		return nil, fmt.Errorf("%w: population: %w", ErrInvalidRequest, err)
	}
	profile, err := models.Profile(req.Profiles)
	if err != nil {
		return nil, fmt.Errorf("%w: profiles: %w", ErrInvalidRequest, err)
	}
	scenarios, err := assumption.NewScenarioSet(req.Scenarios...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	sim, err := NewSimulation(Inputs{Population: pop, Profile: profile}, scenarios)
	if err != nil {
		return nil, err
	}
	sim.SetLogger(m.logger)
	if m.repo != nil {
		sim.SetRepository(m.repo)
	}
	return sim, nil
}

// Run executes the requested scenario, and the baseline when one is named,
// and renders the Markdown report.
func (m *Manager) Run(ctx context.Context, req models.SimulationRequest) (*models.SimulationResponse, error) {
	dims, err := req.Dimensions()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	sim, err := m.Build(req)
	if err != nil {
		return nil, err
	}
	name := req.Scenario
	if name == "" {
		name = req.Scenarios[0].Name
	}
	opts := SummaryOptions{AgeStep: req.AgeStep, Year: req.ReportYear}

	resp := &models.SimulationResponse{}
	if req.Baseline != "" && req.Baseline != name {
		cmp, err := sim.Compare(ctx, req.Baseline, name, req.Column, opts)
		if err != nil {
			return nil, err
		}
		resp.Summary = cmp.Alternate
		resp.Comparison = cmp
		resp.Report = report.ComparisonMarkdown(cmp)
		m.remember(cmp.Baseline, cmp.Alternate)
	} else {
		summary, err := sim.Execute(ctx, name, req.Column, opts)
		if err != nil {
			return nil, err
		}
		resp.Summary = summary
		resp.Report = report.Markdown(summary)
		m.remember(summary)
	}

	if len(dims) > 0 {
		g, err := sim.GroupPresentValues(name, dims...)
		if err != nil {
			return nil, err
		}
		resp.Groups = models.Groups(g)
	}
	if req.IncludeCohorts {
		pv, err := sim.PresentValues(name)
		if err != nil {
			return nil, err
		}
		resp.Cohorts = models.Rows(pv.PerCapita)
	}
	return resp, nil
}

func (m *Manager) remember(summaries ...*models.RunSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range summaries {
		if _, ok := m.runs[s.ID]; !ok {
			m.order = append(m.order, s.ID)
		}
		m.runs[s.ID] = s
	}
	m.evict()
}

// evict drops the oldest summaries beyond capacity. Callers hold mu.
func (m *Manager) evict() {
	for len(m.order) > m.capacity {
		delete(m.runs, m.order[0])
		m.order = m.order[1:]
	}
}

// Get returns a run summary from memory, then from the repository.
func (m *Manager) Get(ctx context.Context, runID string) (*models.RunSummary, error) {
	m.mu.RLock()
	s, ok := m.runs[runID]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	if m.repo == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, runID)
	}
	return m.repo.Load(ctx, runID)
}
