// Package valuation computes the remaining-lifetime present value of a flow
// column for every cohort cell of a table.
package valuation

import (
	"errors"
	"fmt"
	"math"

	"generational_accounting/pkg/core/cohort"

	"gonum.org/v1/gonum/mat"
)

// ErrMissingColumn is returned when the flow column is not a registered type
// or the population column is absent.
var ErrMissingColumn = errors.New("valuation: missing column")

type config struct {
	discountRate float64
}

// Option configures a present value computation.
type Option func(*config)

// WithDiscountRate sets r in dsct = (1+r)^-k. The default is 0.
func WithDiscountRate(r float64) Option {
	return func(c *config) { c.discountRate = r }
}

// Result bundles the aggregate and per-capita present values of one column.
// Both tables carry the value column (registered) and pop.
type Result struct {
	Column       string
	DiscountRate float64
	Aggregate    *cohort.Table
	PerCapita    *cohort.Table
}

// PresentValues computes both the aggregate and the per-capita tables.
func PresentValues(t *cohort.Table, column string, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)
	agg, err := AggregatePresentValue(t, column, opts...)
	if err != nil {
		return nil, err
	}
	pc, err := perCapitaFrom(agg, column)
	if err != nil {
		return nil, err
	}
	return &Result{Column: column, DiscountRate: cfg.discountRate, Aggregate: agg, PerCapita: pc}, nil
}

func newConfig(opts []Option) config {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// AggregatePresentValue returns, for every cell (a, s, y), the discounted sum
// of dsct * value * pop along the diagonal (a+j, s, y+j) until the oldest age
// or the last year is reached. Missing cells count as zero flow.
func AggregatePresentValue(t *cohort.Table, column string, opts ...Option) (*cohort.Table, error) {
	if !t.IsType(column) {
		return nil, fmt.Errorf("present value: %w: %q is not a registered type", ErrMissingColumn, column)
	}
	pop, err := t.Column(cohort.PopColumn)
	if err != nil {
		return nil, fmt.Errorf("present value: %w: %q", ErrMissingColumn, cohort.PopColumn)
	}
	cfg := newConfig(opts)

	discounted := t.GenerateDiscountFactor(cfg.discountRate)
	dsct, _ := discounted.Column(cohort.DiscountColumn)
	values, _ := discounted.Column(column)

	flows := make([]float64, len(values))
	for i, v := range values {
		flows[i] = dsct[i] * v * pop[i]
	}
	pv := accumulate(t, flows)

	return cohort.FromColumns(t.Keys(),
		cohort.Column{Name: column, Values: pv, Type: true},
		cohort.Column{Name: cohort.PopColumn, Values: pop},
	)
}

// PerCapitaPresentValue is the aggregate present value divided by population.
// Zero population yields NaN or Inf cells.
func PerCapitaPresentValue(t *cohort.Table, column string, opts ...Option) (*cohort.Table, error) {
	agg, err := AggregatePresentValue(t, column, opts...)
	if err != nil {
		return nil, err
	}
	return perCapitaFrom(agg, column)
}

func perCapitaFrom(agg *cohort.Table, column string) (*cohort.Table, error) {
	pv, _ := agg.Column(column)
	pop, _ := agg.Column(cohort.PopColumn)
	for i := range pv {
		pv[i] /= pop[i]
	}
	return agg.WithColumn(column, pv)
}

// accumulate lays flows out as one age x year matrix per sex and runs the
// backward diagonal sum M[a][y] += M[a+1][y+1] from the second-to-last year
// down to the first. The oldest age and the last year inherit nothing.
func accumulate(t *cohort.Table, flows []float64) []float64 {
	b := t.Bounds()
	nAges := b.AgeMax - b.AgeMin + 1
	nYears := b.YearMax - b.YearMin + 1

	grids := map[cohort.Sex]*mat.Dense{}
	for _, s := range cohort.Sexes {
		grids[s] = mat.NewDense(nAges, nYears, nil)
	}
	for i, f := range flows {
		if math.IsNaN(f) {
			continue
		}
		k := t.Key(i)
		grids[k.Sex].Set(k.Age-b.AgeMin, k.Year-b.YearMin, f)
	}

	for _, g := range grids {
		raw := g.RawMatrix()
		for y := nYears - 2; y >= 0; y-- {
			for a := 0; a < nAges-1; a++ {
				raw.Data[a*raw.Stride+y] += raw.Data[(a+1)*raw.Stride+y+1]
			}
		}
	}

	out := make([]float64, len(flows))
	for i := range out {
		k := t.Key(i)
		out[i] = grids[k.Sex].At(k.Age-b.AgeMin, k.Year-b.YearMin)
	}
	return out
}
