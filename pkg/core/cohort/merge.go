package cohort

import (
	"fmt"
	"math"
	"slices"
)

// CombineFirst returns t extended with the rows of other whose keys are not
// already in t. On a key collision t's row wins. Columns of either table that
// the other lacks are NaN on the rows coming from the other table.
func (t *Table) CombineFirst(other *Table) (*Table, error) {
	var extra []int
	for i, k := range other.keys {
		if _, ok := t.index[k]; !ok {
			extra = append(extra, i)
		}
	}
	if len(extra) == 0 {
		return t, nil
	}

	keys := make([]Key, 0, len(t.keys)+len(extra))
	keys = append(keys, t.keys...)
	for _, i := range extra {
		keys = append(keys, other.keys[i])
	}

	order := slices.Clone(t.order)
	for _, name := range other.order {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	cols := make([]Column, 0, len(order))
	for _, name := range order {
		values := make([]float64, len(keys))
		if src, ok := t.cols[name]; ok {
			copy(values, src)
		} else {
			fillNaN(values[:len(t.keys)])
		}
		tail := values[len(t.keys):]
		if src, ok := other.cols[name]; ok {
			for j, i := range extra {
				tail[j] = src[i]
			}
		} else {
			fillNaN(tail)
		}
		cols = append(cols, Column{Name: name, Values: values, Type: t.IsType(name) || other.IsType(name)})
	}

	merged, err := FromColumns(keys, cols...)
	if err != nil {
		return nil, fmt.Errorf("combine tables: %w", err)
	}
	for name, years := range t.typeYears {
		merged.typeYears[name] = slices.Clone(years)
	}
	for name, years := range other.typeYears {
		if _, ok := merged.typeYears[name]; !ok {
			merged.typeYears[name] = slices.Clone(years)
		}
	}
	return merged, nil
}

func fillNaN(values []float64) {
	for i := range values {
		values[i] = math.NaN()
	}
}

// NewUniform builds a table covering ages 0..100, both sexes and the years
// first..last, with a constant population.
func NewUniform(first, last int, pop float64) (*Table, error) {
	var keys []Key
	for age := 0; age <= MaxAge; age++ {
		for _, s := range Sexes {
			for y := first; y <= last; y++ {
				keys = append(keys, Key{Age: age, Sex: s, Year: y})
			}
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("uniform table %d..%d: %w", first, last, ErrEmptyTable)
	}
	values := make([]float64, len(keys))
	for i := range values {
		values[i] = pop
	}
	return New(keys, values)
}
