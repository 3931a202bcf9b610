package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"generational_accounting/pkg/core/assumption"
	"generational_accounting/pkg/core/cohort"
	"generational_accounting/pkg/core/store"
	"generational_accounting/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func neutralRequest() models.SimulationRequest {
	req := models.SimulationRequest{
		Scenario: "default",
		AgeStep:  50,
	}
	for age := 0; age <= cohort.MaxAge; age++ {
		v := 0.0
		switch {
		case age < 50:
			v = -1
		case age < cohort.MaxAge:
			v = 1
		}
		for sex := 0; sex <= 1; sex++ {
			req.Population = append(req.Population, models.PopulationRow{Age: ptr(age), Sex: ptr(sex), Year: ptr(2001), Pop: ptr(1.0)})
			req.Profiles = append(req.Profiles, models.ProfileRow{Age: ptr(age), Sex: ptr(sex), Values: map[string]float64{"tax": v}})
		}
	}
	reform := neutralScenario("reform")
	reform.NetGovWealth = 20
	req.Scenarios = []assumption.ScenarioParameters{neutralScenario("default"), reform}
	return req
}

func TestManager_RunAndGet(t *testing.T) {
	repo := store.NewMemoryRepo()
	m := NewManager(repo, nil)
	ctx := context.Background()

	resp, err := m.Run(ctx, neutralRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.Comparison != nil {
		t.Errorf("no baseline was requested")
	}
	if !near(float64(resp.Summary.IPL.Value), -10) {
		t.Errorf("expected IPL -10, got %.4f", float64(resp.Summary.IPL.Value))
	}
	if !strings.Contains(resp.Report, "| IPL | -10.00 |") {
		t.Errorf("report misses the IPL row:\n%s", resp.Report)
	}

	got, err := m.Get(ctx, resp.Summary.ID)
	if err != nil || got.ID != resp.Summary.ID {
		t.Fatalf("Get from memory failed: %v", err)
	}
	if _, err := repo.Load(ctx, resp.Summary.ID); err != nil {
		t.Errorf("summary was not saved: %v", err)
	}

	// A fresh manager on the same repository falls back to storage.
	other := NewManager(repo, nil)
	if _, err := other.Get(ctx, resp.Summary.ID); err != nil {
		t.Errorf("Get from repository failed: %v", err)
	}
	if _, err := NewManager(nil, nil).Get(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_RunWithBaseline(t *testing.T) {
	req := neutralRequest()
	req.Scenario = "reform"
	req.Baseline = "default"

	resp, err := NewManager(nil, nil).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if resp.Comparison == nil {
		t.Fatalf("expected a comparison")
	}
	// Ten more units of wealth lower the liability by ten.
	if !near(float64(resp.Comparison.IPLDelta), -10) {
		t.Errorf("expected IPL delta -10, got %.4f", float64(resp.Comparison.IPLDelta))
	}
	if resp.Summary.Scenario != "reform" {
		t.Errorf("expected the reform summary, got %s", resp.Summary.Scenario)
	}
	if !strings.HasPrefix(resp.Report, "# reform vs default") {
		t.Errorf("unexpected report heading")
	}
}

func TestManager_RetainsBoundedSummaries(t *testing.T) {
	repo := store.NewMemoryRepo()
	m := NewManager(repo, nil)
	m.SetCapacity(2)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		resp, err := m.Run(ctx, neutralRequest())
		if err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
		ids = append(ids, resp.Summary.ID)
	}
	if len(m.runs) != 2 || len(m.order) != 2 {
		t.Fatalf("expected 2 summaries in memory, got %d", len(m.runs))
	}
	if _, ok := m.runs[ids[0]]; ok {
		t.Errorf("oldest summary should have been evicted")
	}
	if got, err := m.Get(ctx, ids[0]); err != nil || got.ID != ids[0] {
		t.Errorf("evicted summary should come from the repository: %v", err)
	}

	noRepo := NewManager(nil, nil)
	noRepo.SetCapacity(0)
	resp, err := noRepo.Run(ctx, neutralRequest())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(noRepo.runs) != 0 {
		t.Errorf("capacity 0 should keep nothing, got %d", len(noRepo.runs))
	}
	if _, err := noRepo.Get(ctx, resp.Summary.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestManager_GroupsAndCohorts(t *testing.T) {
	req := neutralRequest()
	req.GroupBy = []string{"sex"}
	req.IncludeCohorts = true

	resp, err := NewManager(nil, nil).Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	g := resp.Groups
	if g == nil || len(g.By) != 1 || g.By[0] != "sex" || len(g.Rows) != 2 {
		t.Fatalf("unexpected groups %+v", g)
	}
	if g.Rows[0].Levels[0] != 0 || g.Rows[1].Levels[0] != 1 || g.Rows[0].Value != g.Rows[1].Value {
		t.Errorf("expected equal sums for both sexes, got %+v", g.Rows)
	}

	// 101 ages, 2 sexes, 200 years
	if len(resp.Cohorts) != 101*2*200 {
		t.Fatalf("expected 40400 cohort rows, got %d", len(resp.Cohorts))
	}
	first := resp.Cohorts[0]
	if first["age"] != 0 || first["sex"] != 0 || first["year"] != 2001 {
		t.Errorf("rows should start at (0, 0, 2001), got %v", first)
	}
	// newborns of 2001 pay 50 and receive 50
	if v, ok := first[NetTransfersColumn].(float64); !ok || !near(v, 0) {
		t.Errorf("expected per-capita value 0, got %v", first[NetTransfersColumn])
	}

	req.GroupBy = []string{"region"}
	if _, err := NewManager(nil, nil).Run(context.Background(), req); !errors.Is(err, ErrInvalidRequest) || !errors.Is(err, cohort.ErrMissingDimension) {
		t.Errorf("expected an invalid dimension error, got %v", err)
	}
}

func TestManager_InvalidRequest(t *testing.T) {
	m := NewManager(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.SimulationRequest)
	}{
		{"no population", func(r *models.SimulationRequest) { r.Population = nil }},
		{"no scenarios", func(r *models.SimulationRequest) { r.Scenarios = nil }},
		{"missing year", func(r *models.SimulationRequest) { r.Population[3].Year = nil }},
		{"bad sex", func(r *models.SimulationRequest) { r.Profiles[0].Sex = ptr(2) }},
		{"duplicate scenario", func(r *models.SimulationRequest) { r.Scenarios[1].Name = "default" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := neutralRequest()
			tc.mutate(&req)
			if _, err := m.Run(ctx, req); !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}

	req := neutralRequest()
	req.Scenario = "missing"
	if _, err := m.Run(ctx, req); !errors.Is(err, assumption.ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}
}
