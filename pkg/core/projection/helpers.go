package projection

import (
	"fmt"
	"math"

	"generational_accounting/pkg/core/cohort"
)

// RescaleToAggregates rescales a per-capita column so that, in every year
// with a target, sum(value * pop) equals the target aggregate. Years with no
// target become NaN, or keep the previous year's per-capita values when
// carryForward is set.
func RescaleToAggregates(t *cohort.Table, column string, targets map[int]float64, carryForward bool) (*cohort.Table, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, fmt.Errorf("rescale %q: %w", column, ErrMissingColumn)
	}
	pop, err := t.Column(cohort.PopColumn)
	if err != nil {
		return nil, fmt.Errorf("rescale %q: %w: %q", column, ErrMissingColumn, cohort.PopColumn)
	}

	totals := map[int]float64{}
	for i, v := range values {
		if x := v * pop[i]; !math.IsNaN(x) {
			totals[t.Key(i).Year] += x
		}
	}
	scale := func(year int) float64 {
		target, ok := targets[year]
		if !ok {
			return math.NaN()
		}
		return target / totals[year]
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * scale(t.Key(i).Year)
	}

	if carryForward {
		for i := range out {
			k := t.Key(i)
			if _, ok := targets[k.Year]; ok {
				continue
			}
			if j, ok := t.Lookup(cohort.Key{Age: k.Age, Sex: k.Sex, Year: k.Year - 1}); ok && j < i {
				out[i] = out[j]
			}
		}
	}
	return t.WithColumn(column, out)
}
