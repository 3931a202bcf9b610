package pipeline

import (
	"context"
	"fmt"
	"time"

	"generational_accounting/pkg/core/cohort"
	"generational_accounting/pkg/models"
)

// DefaultAgeStep is the width of the age bands reported in a summary.
const DefaultAgeStep = 5

// SummaryOptions shapes the age class table of a summary.
type SummaryOptions struct {
	AgeStep int
	// Year of the age classes; 0 means the first year.
	Year int
}

// Execute runs every stage of one scenario and returns its summary. The
// summary is saved when a repository is set.
func (s *Simulation) Execute(ctx context.Context, name, column string, opts SummaryOptions) (*models.RunSummary, error) {
	start := time.Now()
	if _, err := s.CreateCohorts(ctx, name); err != nil {
		return nil, err
	}
	if _, err := s.CreatePresentValues(ctx, name, column); err != nil {
		return nil, err
	}
	summary, err := s.Summarize(name, opts)
	if err != nil {
		return nil, err
	}
	if s.repo != nil {
		if err := s.repo.Save(ctx, summary); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", name, err)
		}
	}
	s.logger.Info("scenario complete",
		"simulation", s.ID,
		"scenario", name,
		"run", summary.ID,
		"ipl", float64(summary.IPL.Value),
		"elapsed", time.Since(start))
	return summary, nil
}

// Summarize collects the liability indicators of a valued scenario.
func (s *Simulation) Summarize(name string, opts SummaryOptions) (*models.RunSummary, error) {
	r, err := s.withPresentValues(name)
	if err != nil {
		return nil, err
	}
	ipl, err := s.ComputeIPL(name)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	precision, err := s.ComputeIPLPrecision(name)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	imb, err := s.ComputeGenImbalance(name)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}

	step := opts.AgeStep
	if step <= 0 {
		step = DefaultAgeStep
	}
	classes, err := s.AgeClasses(name, step, opts.Year)
	if err != nil {
		return nil, err
	}
	pop, _ := classes.Column(cohort.PopColumn)
	values, _ := classes.Column(r.Column)
	rows := make([]models.AgeClassRow, classes.Len())
	for i := range rows {
		k := classes.Key(i)
		rows[i] = models.AgeClassRow{Age: k.Age, Sex: int(k.Sex), Year: k.Year, Pop: models.Number(pop[i]), Value: models.Number(values[i])}
	}

	return &models.RunSummary{
		ID:           r.ID,
		SimulationID: s.ID,
		Scenario:     name,
		Column:       r.Column,
		GrowthRate:   models.Number(r.Scenario.GrowthRate),
		DiscountRate: models.Number(r.Scenario.DiscountRate),
		YearMin:      r.Cohorts.YearMin(),
		YearMax:      r.Cohorts.YearMax(),
		IPL: models.IPLSummary{
			Value:         models.Number(ipl.Value),
			Past:          models.Number(ipl.Past),
			Future:        models.Number(ipl.Future),
			DoubleCounted: models.Number(ipl.DoubleCounted),
			Wealth:        models.Number(ipl.Wealth),
			Spendings:     models.Number(ipl.Spendings),
			Precision:     models.Number(precision),
		},
		Imbalance: models.ImbalanceSummary{
			N1:         models.Number(imb.N1),
			N0:         models.Number(imb.N0),
			Difference: models.Number(imb.Difference),
			Ratio:      models.Number(imb.Ratio),
			Mu1:        models.Number(imb.Mu1),
		},
		AgeStep:    step,
		AgeClasses: rows,
		CreatedAt:  r.CreatedAt,
	}, nil
}

// Compare executes two scenarios and reports the change from baseline to
// alternate.
func (s *Simulation) Compare(ctx context.Context, baseline, alternate, column string, opts SummaryOptions) (*models.Comparison, error) {
	base, err := s.Execute(ctx, baseline, column, opts)
	if err != nil {
		return nil, err
	}
	alt, err := s.Execute(ctx, alternate, column, opts)
	if err != nil {
		return nil, err
	}
	return compare(base, alt), nil
}

func compare(base, alt *models.RunSummary) *models.Comparison {
	return &models.Comparison{
		Baseline:  base,
		Alternate: alt,
		IPLDelta:  alt.IPL.Value - base.IPL.Value,
		N1Delta:   alt.Imbalance.N1 - base.Imbalance.N1,
	}
}

// CompareRuns compares two scenarios that already have present values, for
// instance after ApplyShock and CreatePresentValues on the alternate.
func (s *Simulation) CompareRuns(baseline, alternate string, opts SummaryOptions) (*models.Comparison, error) {
	base, err := s.Summarize(baseline, opts)
	if err != nil {
		return nil, err
	}
	alt, err := s.Summarize(alternate, opts)
	if err != nil {
		return nil, err
	}
	return compare(base, alt), nil
}
