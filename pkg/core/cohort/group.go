package cohort

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Grouped holds the sums of one column per combination of grouping levels.
type Grouped struct {
	Column string
	By     []Dimension
	// Keys[i] are the level values (age, sex code or year) of Values[i],
	// sorted lexicographically.
	Keys   [][]int
	Values []float64

	lookup map[string]int
}

// Value returns the sum for one combination of level values.
func (g *Grouped) Value(levels ...int) (float64, bool) {
	i, ok := g.lookup[levelKey(levels)]
	if !ok {
		return 0, false
	}
	return g.Values[i], true
}

// Total is the sum over every group.
func (g *Grouped) Total() float64 {
	var s float64
	for _, v := range g.Values {
		s += v
	}
	return s
}

func levelKey(levels []int) string { return fmt.Sprint(levels) }

// GroupSum sums column over the given levels. Missing (NaN) cells are skipped.
// With no levels the result holds a single grand total.
func (t *Table) GroupSum(column string, by ...Dimension) (*Grouped, error) {
	col, err := t.column(column)
	if err != nil {
		return nil, fmt.Errorf("group sum: %w", err)
	}
	for i, d := range by {
		if d < DimAge || d > DimYear {
			return nil, fmt.Errorf("group sum: %w: %s", ErrMissingDimension, d)
		}
		if slices.Contains(by[:i], d) {
			return nil, fmt.Errorf("group sum: dimension %s given twice", d)
		}
	}

	g := &Grouped{Column: column, By: slices.Clone(by), lookup: map[string]int{}}
	for i, k := range t.keys {
		levels := make([]int, len(by))
		for j, d := range by {
			levels[j] = d.of(k)
		}
		key := levelKey(levels)
		pos, ok := g.lookup[key]
		if !ok {
			pos = len(g.Keys)
			g.lookup[key] = pos
			g.Keys = append(g.Keys, levels)
			g.Values = append(g.Values, 0)
		}
		if !math.IsNaN(col[i]) {
			g.Values[pos] += col[i]
		}
	}
	g.sort()
	return g, nil
}

func (g *Grouped) sort() {
	perm := make([]int, len(g.Keys))
	for i := range perm {
		perm[i] = i
	}
	slices.SortFunc(perm, func(a, b int) int { return slices.Compare(g.Keys[a], g.Keys[b]) })
	keys := make([][]int, len(perm))
	values := make([]float64, len(perm))
	for i, p := range perm {
		keys[i] = g.Keys[p]
		values[i] = g.Values[p]
		g.lookup[levelKey(keys[i])] = i
	}
	g.Keys, g.Values = keys, values
}

// Pivot is a two-level grouping laid out as a matrix: rows follow the first
// level, columns the second. Absent combinations are NaN.
type Pivot struct {
	RowDim  Dimension
	ColDim  Dimension
	RowKeys []int
	ColKeys []int
	Data    *mat.Dense
}

// At returns the cell for the given level values.
func (p *Pivot) At(row, col int) (float64, bool) {
	i, ok := slices.BinarySearch(p.RowKeys, row)
	if !ok {
		return 0, false
	}
	j, ok := slices.BinarySearch(p.ColKeys, col)
	if !ok {
		return 0, false
	}
	return p.Data.At(i, j), true
}

// Pivot reshapes a grouping over exactly two levels.
func (g *Grouped) Pivot() (*Pivot, error) {
	if len(g.By) != 2 {
		return nil, fmt.Errorf("pivot needs exactly 2 levels, got %d", len(g.By))
	}
	var rows, cols []int
	for _, k := range g.Keys {
		rows = append(rows, k[0])
		cols = append(cols, k[1])
	}
	slices.Sort(rows)
	slices.Sort(cols)
	rows = slices.Compact(rows)
	cols = slices.Compact(cols)

	data := mat.NewDense(len(rows), len(cols), nil)
	for i := range rows {
		for j := range cols {
			data.Set(i, j, math.NaN())
		}
	}
	for n, k := range g.Keys {
		i, _ := slices.BinarySearch(rows, k[0])
		j, _ := slices.BinarySearch(cols, k[1])
		data.Set(i, j, g.Values[n])
	}
	return &Pivot{RowDim: g.By[0], ColDim: g.By[1], RowKeys: rows, ColKeys: cols, Data: data}, nil
}
