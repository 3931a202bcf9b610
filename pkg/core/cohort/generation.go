package cohort

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoTransfers is returned when a net transfer column would be built from
// no input columns.
var ErrNoTransfers = errors.New("cohort: no tax or payment columns given")

// ExtractGeneration returns the diagonal followed by the cohort that is age
// years old in year: every row with year-age equal to the same birth year,
// for both sexes. The population column is kept when present.
func (t *Table) ExtractGeneration(year, age int, column string) (*Table, error) {
	if !t.HasColumn(column) {
		return nil, fmt.Errorf("extract generation: %w: %q", ErrColumnNotFound, column)
	}
	birth := year - age
	var rows []int
	for i, k := range t.keys {
		if k.Year-k.Age == birth {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("extract generation born %d: %w", birth, ErrEmptyTable)
	}
	columns := []string{column}
	if column != PopColumn && t.HasColumn(PopColumn) {
		columns = append(columns, PopColumn)
	}
	return t.subset(rows, columns)
}

// ComputeNetTransfers adds the registered column name = sum(taxes) - sum(payments).
// NaN cells in the inputs count as zero.
func (t *Table) ComputeNetTransfers(name string, taxes, payments []string) (*Table, error) {
	if len(taxes)+len(payments) == 0 {
		return nil, ErrNoTransfers
	}
	net := make([]float64, t.Len())
	add := func(cols []string, sign float64) error {
		for _, c := range cols {
			col, err := t.column(c)
			if err != nil {
				return fmt.Errorf("net transfers: %w", err)
			}
			for i, v := range col {
				if !math.IsNaN(v) {
					net[i] += sign * v
				}
			}
		}
		return nil
	}
	if err := add(taxes, 1); err != nil {
		return nil, err
	}
	if err := add(payments, -1); err != nil {
		return nil, err
	}
	return t.WithType(name, net)
}
