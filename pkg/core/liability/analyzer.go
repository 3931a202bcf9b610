// Package liability derives government liability indicators from cohort
// present values: the intertemporal public liability (IPL) and the
// generational imbalance between newborns and future generations.
package liability

import (
	"errors"
	"fmt"
	"math"

	"generational_accounting/pkg/core/cohort"
	"generational_accounting/pkg/core/valuation"
)

var (
	ErrNoPresentValues = errors.New("liability: present values not computed")
	ErrMissingCell     = errors.New("liability: missing cell")
	ErrTooFewYears     = errors.New("liability: need at least two years")
)

// Analyzer reads an aggregate and a per-capita present value table of the
// same column.
type Analyzer struct {
	column    string
	aggregate *cohort.Table
	perCapita *cohort.Table
}

func NewAnalyzer(pv *valuation.Result) (*Analyzer, error) {
	if pv == nil || pv.Aggregate == nil || pv.PerCapita == nil {
		return nil, ErrNoPresentValues
	}
	return &Analyzer{column: pv.Column, aggregate: pv.Aggregate, perCapita: pv.PerCapita}, nil
}

// IPL is the intertemporal public liability and the terms it is built from.
type IPL struct {
	Value float64 `json:"value"`
	// Past is the total present value of generations alive in the first year.
	Past float64 `json:"past"`
	// Future is the total present value of every newborn cohort.
	Future float64 `json:"future"`
	// DoubleCounted is the age-0 first-year cell, included in both Past and Future.
	DoubleCounted float64 `json:"double_counted"`
	Wealth        float64 `json:"wealth"`
	Spendings     float64 `json:"spendings"`
}

// ComputeIPL returns spendings - wealth - future - past + double counted.
func (a *Analyzer) ComputeIPL(wealth, spendings float64) (IPL, error) {
	return a.ipl(wealth, spendings, a.aggregate.YearMax())
}

// ComputeIPLPrecision returns the relative change of the IPL when the last
// year's newborns are added, (IPL - IPL without last year) / IPL. Values
// close to zero mean the horizon is long enough.
func (a *Analyzer) ComputeIPLPrecision(wealth, spendings float64) (float64, error) {
	full, err := a.ComputeIPL(wealth, spendings)
	if err != nil {
		return 0, err
	}
	if a.aggregate.YearMax() == a.aggregate.YearMin() {
		return 0, ErrTooFewYears
	}
	truncated, err := a.ipl(wealth, spendings, a.aggregate.YearMax()-1)
	if err != nil {
		return 0, err
	}
	return (full.Value - truncated.Value) / full.Value, nil
}

func (a *Analyzer) ipl(wealth, spendings float64, lastYear int) (IPL, error) {
	past, err := a.pastTotal()
	if err != nil {
		return IPL{}, err
	}
	future, err := a.futureTotal(lastYear)
	if err != nil {
		return IPL{}, err
	}
	dc, err := a.doubleCounted()
	if err != nil {
		return IPL{}, err
	}
	return IPL{
		Value:         spendings - wealth - future - past + dc,
		Past:          past,
		Future:        future,
		DoubleCounted: dc,
		Wealth:        wealth,
		Spendings:     spendings,
	}, nil
}

// pastTotal sums every age and sex in the first year.
func (a *Analyzer) pastTotal() (float64, error) {
	g, err := a.aggregate.GroupSum(a.column, cohort.DimYear)
	if err != nil {
		return 0, fmt.Errorf("past generations: %w", err)
	}
	v, ok := g.Value(a.aggregate.YearMin())
	if !ok {
		return 0, fmt.Errorf("past generations: %w: year %d", ErrMissingCell, a.aggregate.YearMin())
	}
	return v, nil
}

// futureTotal sums the newborn cells of both sexes up to lastYear.
func (a *Analyzer) futureTotal(lastYear int) (float64, error) {
	newborns, err := a.aggregate.Filter(cohort.Selector{
		Ages:    []int{0},
		Years:   cohort.YearRange(a.aggregate.YearMin(), lastYear),
		Columns: []string{a.column},
	})
	if err != nil {
		return 0, fmt.Errorf("future generations: %w: %v", ErrMissingCell, err)
	}
	g, err := newborns.GroupSum(a.column)
	if err != nil {
		return 0, fmt.Errorf("future generations: %w", err)
	}
	return g.Total(), nil
}

func (a *Analyzer) doubleCounted() (float64, error) {
	var dc float64
	for _, s := range cohort.Sexes {
		v, err := a.cell(a.aggregate, 0, s, a.aggregate.YearMin())
		if err != nil {
			return 0, err
		}
		dc += v
	}
	return dc, nil
}

func (a *Analyzer) cell(t *cohort.Table, age int, sex cohort.Sex, year int) (float64, error) {
	v, err := t.Value(cohort.Key{Age: age, Sex: sex, Year: year}, a.column)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingCell, err)
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	return v, nil
}
