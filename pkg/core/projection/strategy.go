// Package projection extends a cohort table forward in time: population
// beyond the last observed year, per-capita profiles into every year, and
// growth of those profiles under a tax projection method.
package projection

import (
	"fmt"
	"math"

	"generational_accounting/pkg/core/cohort"
)

// =============================================================================
// POPULATION PROJECTION
// =============================================================================

// ProjectPopulation appends the years last+1 .. first+YearLength to t. The k-th
// new year (k from 1) carries the last observed population of each (age, sex)
// multiplied by (1+rate)^k under ExpGrowth, unchanged under HoldConstant.
// Columns other than pop are NaN on the new rows. When the horizon does not
// reach past the last observed year t is returned as is.
func ProjectPopulation(t *cohort.Table, p PopulationProjection) (*cohort.Table, error) {
	if !t.HasColumn(cohort.PopColumn) {
		return nil, fmt.Errorf("project population: %w: %q", ErrMissingColumn, cohort.PopColumn)
	}
	if p.YearLength <= 0 {
		return nil, fmt.Errorf("project population: %w: %d", ErrMissingYearLength, p.YearLength)
	}

	var factor func(k int) float64
	switch p.Method {
	case HoldConstant:
		factor = func(int) float64 { return 1 }
	case ExpGrowth:
		if p.GrowthRate == nil {
			return nil, fmt.Errorf("project population: %w: exp_growth needs a growth rate", ErrMissingRate)
		}
		base := 1 + *p.GrowthRate
		factor = func(k int) float64 { return math.Pow(base, float64(k)) }
	default:
		return nil, fmt.Errorf("project population: %w: %s", ErrInvalidMethod, p.Method)
	}

	first, last := t.YearMin(), t.YearMax()
	target := first + p.YearLength
	if target <= last {
		return t, nil
	}

	lastYear, err := t.Filter(cohort.Selector{Years: []int{last}, Columns: []string{cohort.PopColumn}})
	if err != nil {
		return nil, fmt.Errorf("project population: %w", err)
	}
	lastPop, _ := lastYear.Column(cohort.PopColumn)

	b := cohort.NewBuilder()
	for i := 0; i < lastYear.Len(); i++ {
		k := lastYear.Key(i)
		for year := last + 1; year <= target; year++ {
			b.Set(cohort.Key{Age: k.Age, Sex: k.Sex, Year: year}, cohort.PopColumn, lastPop[i]*factor(year-last))
		}
	}
	extension, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("project population: %w", err)
	}
	return t.CombineFirst(extension)
}
