package liability

import "generational_accounting/pkg/core/cohort"

// DefaultThreshold is the age tracked alongside newborns in a break down.
const DefaultThreshold = 60

// BreakDownRow holds one year of the IPL break down. Index 0 is male, 1 female.
type BreakDownRow struct {
	Year        int        `json:"year"`
	Newborn     [2]float64 `json:"newborn"`
	AtThreshold [2]float64 `json:"at_threshold"`
	// FutureToDate is the running total of newborn present values.
	FutureToDate float64 `json:"future_to_date"`
}

// BreakDown audits how the IPL accumulates year by year.
type BreakDown struct {
	Threshold int            `json:"threshold"`
	IPL       IPL            `json:"ipl"`
	Rows      []BreakDownRow `json:"rows"`
}

// BreakDownIPL lists, per year, the aggregate present value of newborns and
// of the threshold age by sex, along with the constant IPL terms.
func (a *Analyzer) BreakDownIPL(wealth, spendings float64, threshold int) (*BreakDown, error) {
	ipl, err := a.ComputeIPL(wealth, spendings)
	if err != nil {
		return nil, err
	}
	bd := &BreakDown{Threshold: threshold, IPL: ipl}

	var running float64
	for year := a.aggregate.YearMin(); year <= a.aggregate.YearMax(); year++ {
		row := BreakDownRow{Year: year}
		for _, s := range cohort.Sexes {
			if row.Newborn[s], err = a.cell(a.aggregate, 0, s, year); err != nil {
				return nil, err
			}
			if row.AtThreshold[s], err = a.cell(a.aggregate, threshold, s, year); err != nil {
				return nil, err
			}
			running += row.Newborn[s]
		}
		row.FutureToDate = running
		bd.Rows = append(bd.Rows, row)
	}
	return bd, nil
}
