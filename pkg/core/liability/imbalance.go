package liability

import (
	"fmt"

	"generational_accounting/pkg/core/cohort"
)

// Imbalance compares the per-capita burden left to future generations (N1)
// with the burden of the current newborns (N0).
type Imbalance struct {
	// FutureTransfer is what future generations must pay: spendings - wealth - past.
	FutureTransfer float64 `json:"future_transfer"`
	// Mu1 is the growth-adjusted size of future generations relative to the
	// first unborn cohort.
	Mu1        float64 `json:"mu1"`
	Unborn     float64 `json:"unborn"`
	N1         float64 `json:"n1"`
	N0         float64 `json:"n0"`
	Difference float64 `json:"difference"`
	Ratio      float64 `json:"ratio"`
}

// ComputeGenImbalance spreads the transfer left to future generations over
// every cohort born after the first year, assuming each pays the same
// growth-adjusted per-capita amount N1, and compares N1 with the mean
// per-capita account of this year's newborns.
func (a *Analyzer) ComputeGenImbalance(wealth, spendings, growthRate, discountRate float64) (Imbalance, error) {
	first, last := a.aggregate.YearMin(), a.aggregate.YearMax()
	if last <= first {
		return Imbalance{}, ErrTooFewYears
	}
	past, err := a.pastTotal()
	if err != nil {
		return Imbalance{}, err
	}

	unborn, err := a.newbornPop(first + 1)
	if err != nil {
		return Imbalance{}, err
	}

	boys, err := a.aggregate.Filter(cohort.Selector{
		Ages:    []int{0},
		Sexes:   []cohort.Sex{cohort.Male},
		Years:   cohort.YearRange(first+1, last),
		Columns: []string{cohort.PopColumn},
	})
	if err != nil {
		return Imbalance{}, fmt.Errorf("generational imbalance: %w: %v", ErrMissingCell, err)
	}
	boys = boys.GenerateActualization(growthRate, discountRate)
	act, _ := boys.Column(cohort.ActualizationColumn)

	var mu1 float64
	for i, f := range act {
		mixed, err := a.newbornPop(boys.Key(i).Year)
		if err != nil {
			return Imbalance{}, err
		}
		mu1 += f * mixed / unborn
	}

	var n0 float64
	for _, s := range cohort.Sexes {
		v, err := a.cell(a.perCapita, 0, s, first)
		if err != nil {
			return Imbalance{}, err
		}
		n0 += v / 2
	}

	transfer := spendings - wealth - past
	n1 := transfer / (mu1 * unborn)
	return Imbalance{
		FutureTransfer: transfer,
		Mu1:            mu1,
		Unborn:         unborn,
		N1:             n1,
		N0:             n0,
		Difference:     n1 - n0,
		Ratio:          n1 / n0,
	}, nil
}

// newbornPop is the population aged 0 of both sexes in year.
func (a *Analyzer) newbornPop(year int) (float64, error) {
	var total float64
	for _, s := range cohort.Sexes {
		v, err := a.aggregate.Value(cohort.Key{Age: 0, Sex: s, Year: year}, cohort.PopColumn)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMissingCell, err)
		}
		total += v
	}
	return total, nil
}
