package projection

import (
	"fmt"
	"math"
	"slices"

	"generational_accounting/pkg/core/cohort"
)

// =============================================================================
// TAX PROJECTION ENGINE
// =============================================================================

// ProjectTax grows registered columns over time according to p.Method. The
// growth factor grth is (1+g)^k with k the year position within each
// (age, sex); it is left on the result as a column.
func ProjectTax(t *cohort.Table, p TaxProjection) (*cohort.Table, error) {
	if p.GrowthRate == nil {
		return nil, fmt.Errorf("project tax: %w: growth rate", ErrMissingRate)
	}
	columns := p.Columns
	if len(columns) == 0 {
		columns = t.Types()
		if p.Method == Desynchronized {
			columns = slices.DeleteFunc(columns, func(c string) bool { return slices.Contains(p.Payments, c) })
		}
	}
	for _, c := range append(slices.Clone(columns), p.Payments...) {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("project tax: %w: %q", ErrMissingColumn, c)
		}
	}

	out := t.GenerateGrowthFactor(*p.GrowthRate)
	grth, _ := out.Column(cohort.GrowthColumn)

	switch p.Method {
	case PerCapita:
		return scaleColumns(out, columns, func(i int, _ string) float64 { return grth[i] })

	case Aggregate:
		pop, err := out.Column(cohort.PopColumn)
		if err != nil {
			return nil, fmt.Errorf("project tax: %w: %q", ErrMissingColumn, cohort.PopColumn)
		}
		frozen := map[string][]float64{}
		for _, c := range columns {
			frozen[c] = frozenPopulation(out, pop, lastKnownYear(out, c))
		}
		return scaleColumns(out, columns, func(i int, c string) float64 {
			return grth[i] * frozen[c][i] / pop[i]
		})

	case Desynchronized:
		if p.InflationRate == nil {
			return nil, fmt.Errorf("project tax: %w: desynchronized needs an inflation rate", ErrMissingRate)
		}
		prices := priceIndex(out, *p.InflationRate)
		out, err := scaleColumns(out, columns, func(i int, _ string) float64 { return grth[i] })
		if err != nil {
			return nil, err
		}
		return scaleColumns(out, p.Payments, func(i int, _ string) float64 { return prices[i] })
	}
	return nil, fmt.Errorf("project tax: %w: %s", ErrInvalidMethod, p.Method)
}

func scaleColumns(t *cohort.Table, columns []string, factor func(i int, column string) float64) (*cohort.Table, error) {
	out := t
	for _, c := range columns {
		values, err := out.Column(c)
		if err != nil {
			return nil, fmt.Errorf("project tax: %w", err)
		}
		for i := range values {
			values[i] *= factor(i, c)
		}
		if out, err = out.WithColumn(c, values); err != nil {
			return nil, fmt.Errorf("project tax: %w", err)
		}
	}
	return out, nil
}

// lastKnownYear is the latest year with source data for column, defaulting
// to the table's first year.
func lastKnownYear(t *cohort.Table, column string) int {
	years := t.TypeYears(column)
	if len(years) == 0 {
		return t.YearMin()
	}
	return years[len(years)-1]
}

// frozenPopulation returns, per row, the population of the same (age, sex)
// in year. Rows with no such cell get NaN.
func frozenPopulation(t *cohort.Table, pop []float64, year int) []float64 {
	out := make([]float64, t.Len())
	for i := range out {
		k := t.Key(i)
		j, ok := t.Lookup(cohort.Key{Age: k.Age, Sex: k.Sex, Year: year})
		if !ok {
			out[i] = math.NaN()
			continue
		}
		out[i] = pop[j]
	}
	return out
}

func priceIndex(t *cohort.Table, inflation float64) []float64 {
	idx := t.YearIndex()
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = math.Pow(1+inflation, float64(k))
	}
	return out
}
