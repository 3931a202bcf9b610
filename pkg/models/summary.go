package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Number is a float64 that encodes NaN and infinities as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

type IPLSummary struct {
	Value         Number `json:"value"`
	Past          Number `json:"past"`
	Future        Number `json:"future"`
	DoubleCounted Number `json:"double_counted"`
	Wealth        Number `json:"wealth"`
	Spendings     Number `json:"spendings"`
	Precision     Number `json:"precision"`
}

type ImbalanceSummary struct {
	N1         Number `json:"n1"`
	N0         Number `json:"n0"`
	Difference Number `json:"difference"`
	Ratio      Number `json:"ratio"`
	Mu1        Number `json:"mu1"`
}

// AgeClassRow is the per-capita generational account of one age band.
type AgeClassRow struct {
	Age   int    `json:"age"`
	Sex   int    `json:"sex"`
	Year  int    `json:"year"`
	Pop   Number `json:"pop"`
	Value Number `json:"value"`
}

// RunSummary is what a scenario run reports and persists.
type RunSummary struct {
	ID           string           `json:"id"`
	SimulationID string           `json:"simulation_id"`
	Scenario     string           `json:"scenario"`
	Column       string           `json:"column"`
	GrowthRate   Number           `json:"growth_rate"`
	DiscountRate Number           `json:"discount_rate"`
	YearMin      int              `json:"year_min"`
	YearMax      int              `json:"year_max"`
	IPL          IPLSummary       `json:"ipl"`
	Imbalance    ImbalanceSummary `json:"imbalance"`
	AgeStep      int              `json:"age_step"`
	AgeClasses   []AgeClassRow    `json:"age_classes"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Comparison sets an alternate scenario against a baseline.
type Comparison struct {
	Baseline  *RunSummary `json:"baseline"`
	Alternate *RunSummary `json:"alternate"`
	IPLDelta  Number      `json:"ipl_delta"`
	N1Delta   Number      `json:"n1_delta"`
}

type SimulationResponse struct {
	Summary    *RunSummary      `json:"summary"`
	Comparison *Comparison      `json:"comparison,omitempty"`
	Report     string           `json:"report,omitempty"`
	Groups     *GroupedValues   `json:"groups,omitempty"`
	Cohorts    []map[string]any `json:"cohorts,omitempty"`
}
