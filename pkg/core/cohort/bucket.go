package cohort

import (
	"fmt"
	"math"
	"slices"
)

// Weighting tells AgeBucket how flow columns are stored.
type Weighting int

const (
	// PerCapitaValues columns hold amounts per person; bands take the
	// population-weighted mean.
	PerCapitaValues Weighting = iota
	// AggregateValues columns hold totals; bands take the total divided by the
	// band population.
	AggregateValues
)

// AgeBucket regroups ages into bands of width step: age a falls in band
// floor(a/step)*step. Population is summed per (band, sex, year) and every
// flow column comes out per capita. Columns default to the registered types.
func (t *Table) AgeBucket(step int, w Weighting, columns ...string) (*Table, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}
	pop, err := t.column(PopColumn)
	if err != nil {
		return nil, fmt.Errorf("age bucket: %w", err)
	}
	if len(columns) == 0 {
		columns = t.types
	}
	flows := make([][]float64, len(columns))
	for i, c := range columns {
		if flows[i], err = t.column(c); err != nil {
			return nil, fmt.Errorf("age bucket: %w", err)
		}
	}

	type cell struct {
		pop   float64
		flows []float64
	}
	var keys []Key
	cells := map[Key]*cell{}
	for i, k := range t.keys {
		bk := Key{Age: (k.Age / step) * step, Sex: k.Sex, Year: k.Year}
		c, ok := cells[bk]
		if !ok {
			c = &cell{flows: make([]float64, len(columns))}
			cells[bk] = c
			keys = append(keys, bk)
		}
		p := pop[i]
		if !math.IsNaN(p) {
			c.pop += p
		}
		for j, f := range flows {
			v := f[i]
			if w == PerCapitaValues {
				v *= p
			}
			if !math.IsNaN(v) {
				c.flows[j] += v
			}
		}
	}

	out := []Column{{Name: PopColumn, Values: make([]float64, len(keys))}}
	for _, c := range columns {
		out = append(out, Column{Name: c, Values: make([]float64, len(keys)), Type: true})
	}
	for i, k := range keys {
		c := cells[k]
		out[0].Values[i] = c.pop
		for j := range columns {
			out[j+1].Values[i] = c.flows[j] / c.pop
		}
	}
	bucketed, err := FromColumns(keys, out...)
	if err != nil {
		return nil, fmt.Errorf("age bucket: %w", err)
	}
	for _, c := range columns {
		if years, ok := t.typeYears[c]; ok {
			bucketed.typeYears[c] = slices.Clone(years)
		}
	}
	return bucketed, nil
}
