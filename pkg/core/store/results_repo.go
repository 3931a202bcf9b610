package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"generational_accounting/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no run is stored under an ID.
var ErrNotFound = errors.New("store: run not found")

// ResultRepository persists run summaries.
type ResultRepository interface {
	Save(ctx context.Context, summary *models.RunSummary) error
	Load(ctx context.Context, runID string) (*models.RunSummary, error)
	ListBySimulation(ctx context.Context, simulationID string) ([]*models.RunSummary, error)
}

// ResultRepo stores summaries as JSONB rows in simulation_runs.
type ResultRepo struct {
	pool *pgxpool.Pool
}

// NewResultRepo uses the given pool, or the package pool when nil.
func NewResultRepo(p *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: p}
}

func (r *ResultRepo) db() (*pgxpool.Pool, error) {
	if r.pool != nil {
		return r.pool, nil
	}
	if p := GetPool(); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("database pool not initialized")
}

// Save upserts a summary keyed by run ID.
func (r *ResultRepo) Save(ctx context.Context, summary *models.RunSummary) error {
	pool, err := r.db()
	if err != nil {
		return err
	}
	jsonData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO simulation_runs (run_id, simulation_id, scenario, summary_json, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id)
		DO UPDATE SET
			simulation_id = EXCLUDED.simulation_id,
			scenario = EXCLUDED.scenario,
			summary_json = EXCLUDED.summary_json,
			created_at = EXCLUDED.created_at;
	`
	_, err = pool.Exec(ctx, query, summary.ID, summary.SimulationID, summary.Scenario, jsonData, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", summary.ID, err)
	}
	return nil
}

// Load retrieves one summary.
func (r *ResultRepo) Load(ctx context.Context, runID string) (*models.RunSummary, error) {
	pool, err := r.db()
	if err != nil {
		return nil, err
	}

	var jsonData []byte
	err = pool.QueryRow(ctx, `SELECT summary_json FROM simulation_runs WHERE run_id = $1`, runID).Scan(&jsonData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var summary models.RunSummary
	if err := json.Unmarshal(jsonData, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run summary: %w", err)
	}
	return &summary, nil
}

// ListBySimulation returns every run of one simulation, oldest first.
func (r *ResultRepo) ListBySimulation(ctx context.Context, simulationID string) ([]*models.RunSummary, error) {
	pool, err := r.db()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx,
		`SELECT summary_json FROM simulation_runs WHERE simulation_id = $1 ORDER BY created_at`, simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []*models.RunSummary
	for rows.Next() {
		var jsonData []byte
		if err := rows.Scan(&jsonData); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var s models.RunSummary
		if err := json.Unmarshal(jsonData, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run summary: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// MemoryRepo keeps summaries in process. It is used when no database is
// configured and in tests.
type MemoryRepo struct {
	mu   sync.RWMutex
	runs map[string]models.RunSummary
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{runs: make(map[string]models.RunSummary)}
}

func (m *MemoryRepo) Save(_ context.Context, summary *models.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[summary.ID] = copySummary(summary)
	return nil
}

func (m *MemoryRepo) Load(_ context.Context, runID string) (*models.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	c := copySummary(&s)
	return &c, nil
}

func (m *MemoryRepo) ListBySimulation(_ context.Context, simulationID string) ([]*models.RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.RunSummary
	for _, s := range m.runs {
		if s.SimulationID == simulationID {
			c := copySummary(&s)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func copySummary(s *models.RunSummary) models.RunSummary {
	c := *s
	c.AgeClasses = append([]models.AgeClassRow(nil), s.AgeClasses...)
	return c
}
