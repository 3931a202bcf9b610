package models

import (
	"fmt"
	"math"
	"sort"

	"generational_accounting/pkg/core/assumption"
	"generational_accounting/pkg/core/cohort"
	"generational_accounting/pkg/core/projection"
)

// PopulationRow is one (age, sex, year) population count. Pointers let a
// decoder tell a missing dimension from a zero.
type PopulationRow struct {
	Age  *int     `json:"age"`
	Sex  *int     `json:"sex"`
	Year *int     `json:"year"`
	Pop  *float64 `json:"pop"`
}

// ProfileRow holds per-capita values for one (age, sex), optionally for one year.
type ProfileRow struct {
	Age    *int               `json:"age"`
	Sex    *int               `json:"sex"`
	Year   *int               `json:"year,omitempty"`
	Values map[string]float64 `json:"values"`
}

// SimulationRequest is the input contract shared by the HTTP API and the CLI.
type SimulationRequest struct {
	Population []PopulationRow                 `json:"population"`
	Profiles   []ProfileRow                    `json:"profiles"`
	Scenarios  []assumption.ScenarioParameters `json:"scenarios"`
	// Scenario names the run; Baseline, when set, is compared against it.
	Scenario string `json:"scenario"`
	Baseline string `json:"baseline,omitempty"`
	// Column is the flow valued; empty means the net transfers of the
	// scenario's taxes and payments.
	Column string `json:"column,omitempty"`
	// AgeStep and ReportYear shape the age class table.
	AgeStep    int `json:"age_step,omitempty"`
	ReportYear int `json:"report_year,omitempty"`
	// GroupBy lists dimensions ("age", "sex", "year") to sum present values by.
	GroupBy []string `json:"group_by,omitempty"`
	// IncludeCohorts returns the per-capita present value of every cell.
	IncludeCohorts bool `json:"include_cohorts,omitempty"`
}

// GroupRow is the sum of one combination of grouping levels.
type GroupRow struct {
	Levels []int  `json:"levels"`
	Value  Number `json:"value"`
}

// GroupedValues is a present value column summed by dimensions.
type GroupedValues struct {
	Column string     `json:"column"`
	By     []string   `json:"by"`
	Rows   []GroupRow `json:"rows"`
}

// Dimensions parses GroupBy.
func (r SimulationRequest) Dimensions() ([]cohort.Dimension, error) {
	dims := make([]cohort.Dimension, 0, len(r.GroupBy))
	for _, name := range r.GroupBy {
		d, err := cohort.ParseDimension(name)
		if err != nil {
			return nil, fmt.Errorf("group_by: %w", err)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// Groups converts grouped sums into rows.
func Groups(g *cohort.Grouped) *GroupedValues {
	out := &GroupedValues{Column: g.Column, By: make([]string, len(g.By)), Rows: make([]GroupRow, len(g.Keys))}
	for i, d := range g.By {
		out.By[i] = d.String()
	}
	for i, levels := range g.Keys {
		out.Rows[i] = GroupRow{Levels: levels, Value: Number(g.Values[i])}
	}
	return out
}

func missing(row int, dim cohort.Dimension) error {
	return fmt.Errorf("row %d: %w: %s", row, cohort.ErrMissingDimension, dim)
}

// PopulationTable converts population rows into a cohort table.
func PopulationTable(rows []PopulationRow) (*cohort.Table, error) {
	b := cohort.NewBuilder()
	for i, r := range rows {
		switch {
		case r.Age == nil:
			return nil, missing(i, cohort.DimAge)
		case r.Sex == nil:
			return nil, missing(i, cohort.DimSex)
		case r.Year == nil:
			return nil, missing(i, cohort.DimYear)
		case r.Pop == nil:
			return nil, fmt.Errorf("row %d: %w: %q", i, cohort.ErrColumnNotFound, cohort.PopColumn)
		}
		k := cohort.Key{Age: *r.Age, Sex: cohort.Sex(*r.Sex), Year: *r.Year}
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		b.Set(k, cohort.PopColumn, *r.Pop)
	}
	return b.Build()
}

// Profile converts profile rows. Rows without a year hold in every year.
func Profile(rows []ProfileRow) (*projection.Profile, error) {
	p := projection.NewProfile()
	for i, r := range rows {
		switch {
		case r.Age == nil:
			return nil, missing(i, cohort.DimAge)
		case r.Sex == nil:
			return nil, missing(i, cohort.DimSex)
		}
		k := cohort.Key{Age: *r.Age, Sex: cohort.Sex(*r.Sex)}
		if err := k.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		columns := make([]string, 0, len(r.Values))
		for c := range r.Values {
			columns = append(columns, c)
		}
		sort.Strings(columns)
		for _, c := range columns {
			if r.Year != nil {
				p.SetYear(c, k.Age, k.Sex, *r.Year, r.Values[c])
			} else {
				p.Set(c, k.Age, k.Sex, r.Values[c])
			}
		}
	}
	return p, nil
}

// Rows flattens a table into JSON-friendly records. Missing and infinite
// cells become null.
func Rows(t *cohort.Table) []map[string]any {
	columns := t.Columns()
	out := make([]map[string]any, t.Len())
	for i := range out {
		k := t.Key(i)
		rec := map[string]any{"age": k.Age, "sex": int(k.Sex), "year": k.Year}
		for _, c := range columns {
			v, _ := t.Value(k, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				rec[c] = nil
				continue
			}
			rec[c] = v
		}
		out[i] = rec
	}
	return out
}
