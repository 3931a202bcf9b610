package cohort

import (
	"fmt"
	"slices"
)

// Selector restricts rows and columns. Empty fields select everything.
type Selector struct {
	Ages    []int
	Sexes   []Sex
	Years   []int
	Columns []string
}

// AgeRange selects ages lo..hi inclusive.
func AgeRange(lo, hi int) []int { return intRange(lo, hi) }

// YearRange selects years lo..hi inclusive.
func YearRange(lo, hi int) []int { return intRange(lo, hi) }

func intRange(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}

func (s Selector) matcher() func(Key) bool {
	ages := setOf(s.Ages)
	years := setOf(s.Years)
	sexes := map[Sex]bool{}
	for _, x := range s.Sexes {
		sexes[x] = true
	}
	return func(k Key) bool {
		if ages != nil && !ages[k.Age] {
			return false
		}
		if len(sexes) > 0 && !sexes[k.Sex] {
			return false
		}
		if years != nil && !years[k.Year] {
			return false
		}
		return true
	}
}

func setOf(values []int) map[int]bool {
	if len(values) == 0 {
		return nil
	}
	m := make(map[int]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// Filter returns the rows and columns chosen by sel. With no Columns every
// column is kept. An empty result is an error.
func (t *Table) Filter(sel Selector) (*Table, error) {
	columns := t.order
	if len(sel.Columns) > 0 {
		for _, c := range sel.Columns {
			if !t.HasColumn(c) {
				return nil, fmt.Errorf("filter: %w: %q", ErrColumnNotFound, c)
			}
		}
		columns = sel.Columns
	}

	match := sel.matcher()
	var rows []int
	for i, k := range t.keys {
		if match(k) {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("filter: %w", ErrEmptyTable)
	}
	return t.subset(rows, columns)
}

// subset builds a table from row positions (already in key order) and columns.
func (t *Table) subset(rows []int, columns []string) (*Table, error) {
	keys := make([]Key, len(rows))
	for i, r := range rows {
		keys[i] = t.keys[r]
	}
	cols := make([]Column, 0, len(columns))
	for _, name := range columns {
		src := t.cols[name]
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = src[r]
		}
		cols = append(cols, Column{Name: name, Values: values, Type: t.IsType(name)})
	}
	out, err := FromColumns(keys, cols...)
	if err != nil {
		return nil, err
	}
	for _, name := range columns {
		if years, ok := t.typeYears[name]; ok {
			out.typeYears[name] = slices.Clone(years)
		}
	}
	return out, nil
}
