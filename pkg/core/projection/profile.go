package projection

import (
	"fmt"
	"math"
	"slices"

	"generational_accounting/pkg/core/cohort"
)

// Profile holds per-capita values by (age, sex), optionally observed in
// specific years.
type Profile struct {
	order  []string
	values map[string]map[cohort.AgeSex]map[int]float64
	// yearless cells apply to any year.
	yearless map[string]map[cohort.AgeSex]float64
}

func NewProfile() *Profile {
	return &Profile{
		values:   make(map[string]map[cohort.AgeSex]map[int]float64),
		yearless: make(map[string]map[cohort.AgeSex]float64),
	}
}

func (p *Profile) addColumn(column string) {
	if !slices.Contains(p.order, column) {
		p.order = append(p.order, column)
	}
}

// Set records a value that holds in every year.
func (p *Profile) Set(column string, age int, sex cohort.Sex, v float64) *Profile {
	p.addColumn(column)
	if p.yearless[column] == nil {
		p.yearless[column] = make(map[cohort.AgeSex]float64)
	}
	p.yearless[column][cohort.AgeSex{Age: age, Sex: sex}] = v
	return p
}

// SetYear records a value observed in one year.
func (p *Profile) SetYear(column string, age int, sex cohort.Sex, year int, v float64) *Profile {
	p.addColumn(column)
	if p.values[column] == nil {
		p.values[column] = make(map[cohort.AgeSex]map[int]float64)
	}
	as := cohort.AgeSex{Age: age, Sex: sex}
	if p.values[column][as] == nil {
		p.values[column][as] = make(map[int]float64)
	}
	p.values[column][as][year] = v
	return p
}

// Columns returns the profile column names in the order first seen.
func (p *Profile) Columns() []string { return slices.Clone(p.order) }

// observedYears lists the years with at least one non-missing value.
func (p *Profile) observedYears(column string) []int {
	seen := map[int]bool{}
	for _, byYear := range p.values[column] {
		for y, v := range byYear {
			if !math.IsNaN(v) {
				seen[y] = true
			}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}

// valueAt resolves the profile value for one target cell: the latest observed
// year not after year, else the earliest observed year, else the yearless
// value. ok is false when the profile has nothing for (age, sex).
func (p *Profile) valueAt(column string, as cohort.AgeSex, year int) (float64, bool) {
	if byYear, ok := p.values[column][as]; ok && len(byYear) > 0 {
		best, bestSet := 0, false
		earliest, earliestSet := 0, false
		for y := range byYear {
			if y <= year && (!bestSet || y > best) {
				best, bestSet = y, true
			}
			if !earliestSet || y < earliest {
				earliest, earliestSet = y, true
			}
		}
		if bestSet {
			return byYear[best], true
		}
		return byYear[earliest], true
	}
	v, ok := p.yearless[column][as]
	return v, ok
}

// FillOptions restricts filling to one target year when Year is set.
type FillOptions struct {
	Year *int
}

// FillProfiles copies every profile column into t as a new registered type,
// replicated into every year of t (or only opts.Year). Cells the profile does
// not cover are NaN. The years in which each column had source data are
// recorded on the result; a yearless column records the table's first year.
func FillProfiles(t *cohort.Table, p *Profile, opts FillOptions) (*cohort.Table, error) {
	out := t
	for _, column := range p.order {
		if out.HasColumn(column) {
			return nil, fmt.Errorf("fill profiles: %w: %q", ErrColumnAlreadyExists, column)
		}
		values := make([]float64, out.Len())
		for i := range values {
			k := out.Key(i)
			values[i] = math.NaN()
			if opts.Year != nil && k.Year != *opts.Year {
				continue
			}
			if v, ok := p.valueAt(column, cohort.AgeSex{Age: k.Age, Sex: k.Sex}, k.Year); ok {
				values[i] = v
			}
		}

		var err error
		if out, err = out.WithType(column, values); err != nil {
			return nil, fmt.Errorf("fill profiles: %w", err)
		}
		years := p.observedYears(column)
		if len(years) == 0 {
			years = []int{t.YearMin()}
		}
		if out, err = out.WithTypeYears(column, years); err != nil {
			return nil, fmt.Errorf("fill profiles: %w", err)
		}
	}
	return out, nil
}
