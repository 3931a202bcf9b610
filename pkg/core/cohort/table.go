package cohort

import (
	"fmt"
	"math"
	"slices"
	"sort"
)

// Column is a named slice of values supplied at construction.
type Column struct {
	Name   string
	Values []float64
	// Type registers the column as a flow type (taxes, transfers, present values).
	Type bool
}

// Bounds are the extreme ages and years present in a table.
type Bounds struct {
	AgeMin  int
	AgeMax  int
	YearMin int
	YearMax int
}

// Table is an immutable columnar table indexed by (age, sex, year).
//
// Every transform returns a new Table. Column slices are never written after
// construction, so derived tables share unchanged columns with their source.
type Table struct {
	keys      []Key
	index     map[Key]int
	order     []string
	cols      map[string][]float64
	types     []string
	typeYears map[string][]int
	bounds    Bounds
}

// New builds a table from keys and a population column.
func New(keys []Key, pop []float64) (*Table, error) {
	return FromColumns(keys, Column{Name: PopColumn, Values: pop})
}

// FromColumns builds a table from keys and any number of columns. Keys are
// validated, checked for uniqueness and sorted by (age, sex, year).
func FromColumns(keys []Key, columns ...Column) (*Table, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table{
		keys:      slices.Clone(keys),
		cols:      make(map[string][]float64, len(columns)),
		typeYears: make(map[string][]int),
	}
	for _, k := range t.keys {
		if err := k.Validate(); err != nil {
			return nil, err
		}
	}
	for _, c := range columns {
		if _, ok := t.cols[c.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		if len(c.Values) != len(keys) {
			return nil, fmt.Errorf("%w: %q has %d values for %d keys", ErrLengthMismatch, c.Name, len(c.Values), len(keys))
		}
		t.cols[c.Name] = slices.Clone(c.Values)
		t.order = append(t.order, c.Name)
		if c.Type {
			t.types = append(t.types, c.Name)
		}
	}
	if err := t.sortRows(); err != nil {
		return nil, err
	}
	return t, nil
}

// sortRows orders rows by key, permutes columns accordingly and rebuilds the
// index and bounds.
func (t *Table) sortRows() error {
	if !sort.SliceIsSorted(t.keys, func(i, j int) bool { return t.keys[i].less(t.keys[j]) }) {
		perm := make([]int, len(t.keys))
		for i := range perm {
			perm[i] = i
		}
		sort.SliceStable(perm, func(i, j int) bool { return t.keys[perm[i]].less(t.keys[perm[j]]) })

		keys := make([]Key, len(perm))
		for i, p := range perm {
			keys[i] = t.keys[p]
		}
		t.keys = keys
		for name, col := range t.cols {
			sorted := make([]float64, len(perm))
			for i, p := range perm {
				sorted[i] = col[p]
			}
			t.cols[name] = sorted
		}
	}

	t.index = make(map[Key]int, len(t.keys))
	for i, k := range t.keys {
		if _, dup := t.index[k]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, k)
		}
		t.index[k] = i
	}
	t.bounds = computeBounds(t.keys)
	return nil
}

func computeBounds(keys []Key) Bounds {
	b := Bounds{AgeMin: math.MaxInt, AgeMax: math.MinInt, YearMin: math.MaxInt, YearMax: math.MinInt}
	for _, k := range keys {
		b.AgeMin = min(b.AgeMin, k.Age)
		b.AgeMax = max(b.AgeMax, k.Age)
		b.YearMin = min(b.YearMin, k.Year)
		b.YearMax = max(b.YearMax, k.Year)
	}
	return b
}

// derive returns a shallow copy whose maps can be modified without touching t.
func (t *Table) derive() *Table {
	d := &Table{
		keys:      t.keys,
		index:     t.index,
		order:     slices.Clone(t.order),
		cols:      make(map[string][]float64, len(t.cols)),
		types:     slices.Clone(t.types),
		typeYears: make(map[string][]int, len(t.typeYears)),
		bounds:    t.bounds,
	}
	for name, col := range t.cols {
		d.cols[name] = col
	}
	for name, years := range t.typeYears {
		d.typeYears[name] = years
	}
	return d
}

// Clone returns a deep copy sharing no memory with t.
func (t *Table) Clone() *Table {
	d := t.derive()
	d.keys = slices.Clone(t.keys)
	d.index = make(map[Key]int, len(t.index))
	for k, i := range t.index {
		d.index[k] = i
	}
	for name, col := range t.cols {
		d.cols[name] = slices.Clone(col)
	}
	for name, years := range t.typeYears {
		d.typeYears[name] = slices.Clone(years)
	}
	return d
}

// ============================================================================
// ACCESSORS
// ============================================================================

func (t *Table) Len() int { return len(t.keys) }

// Keys returns a copy of the sorted keys.
func (t *Table) Keys() []Key { return slices.Clone(t.keys) }

// Key returns the i-th key in sort order.
func (t *Table) Key(i int) Key { return t.keys[i] }

// Lookup returns the row position of k.
func (t *Table) Lookup(k Key) (int, bool) {
	i, ok := t.index[k]
	return i, ok
}

// Bounds returns the extreme ages and years of the table.
func (t *Table) Bounds() Bounds { return t.bounds }

func (t *Table) AgeMin() int  { return t.bounds.AgeMin }
func (t *Table) AgeMax() int  { return t.bounds.AgeMax }
func (t *Table) YearMin() int { return t.bounds.YearMin }
func (t *Table) YearMax() int { return t.bounds.YearMax }

// IndexSets returns the distinct sorted ages, sexes and years.
func (t *Table) IndexSets() (ages []int, sexes []Sex, years []int) {
	seenAge := map[int]bool{}
	seenSex := map[Sex]bool{}
	seenYear := map[int]bool{}
	for _, k := range t.keys {
		if !seenAge[k.Age] {
			seenAge[k.Age] = true
			ages = append(ages, k.Age)
		}
		if !seenSex[k.Sex] {
			seenSex[k.Sex] = true
			sexes = append(sexes, k.Sex)
		}
		if !seenYear[k.Year] {
			seenYear[k.Year] = true
			years = append(years, k.Year)
		}
	}
	slices.Sort(ages)
	slices.Sort(sexes)
	slices.Sort(years)
	return ages, sexes, years
}

// Years returns the distinct sorted years.
func (t *Table) Years() []int {
	_, _, years := t.IndexSets()
	return years
}

// Columns returns all column names in insertion order.
func (t *Table) Columns() []string { return slices.Clone(t.order) }

func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return slices.Clone(col), nil
}

// column returns the shared slice; callers must not write to it.
func (t *Table) column(name string) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return col, nil
}

// Value returns the cell at k in the named column.
func (t *Table) Value(k Key, name string) (float64, error) {
	col, err := t.column(name)
	if err != nil {
		return 0, err
	}
	i, ok := t.index[k]
	if !ok {
		return 0, fmt.Errorf("%w: no row %s", ErrInvalidKey, k)
	}
	return col[i], nil
}

// Types returns the registered flow columns in registration order.
func (t *Table) Types() []string { return slices.Clone(t.types) }

func (t *Table) IsType(name string) bool { return slices.Contains(t.types, name) }

// TypeYears returns the years in which the named type had source data.
func (t *Table) TypeYears(name string) []int { return slices.Clone(t.typeYears[name]) }

// ============================================================================
// COLUMN TRANSFORMS
// ============================================================================

// NewColumn adds a registered column filled with NaN.
func (t *Table) NewColumn(name string) (*Table, error) {
	values := make([]float64, t.Len())
	for i := range values {
		values[i] = math.NaN()
	}
	return t.WithType(name, values)
}

// WithType adds a registered column. The name must be free.
func (t *Table) WithType(name string, values []float64) (*Table, error) {
	if t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	d, err := t.WithColumn(name, values)
	if err != nil {
		return nil, err
	}
	d.types = append(d.types, name)
	return d, nil
}

// WithColumn adds or replaces a column. Registration of an existing column is
// kept; a new column is left unregistered.
func (t *Table) WithColumn(name string, values []float64) (*Table, error) {
	if len(values) != t.Len() {
		return nil, fmt.Errorf("%w: %q has %d values for %d rows", ErrLengthMismatch, name, len(values), t.Len())
	}
	d := t.derive()
	if _, ok := d.cols[name]; !ok {
		d.order = append(d.order, name)
	}
	d.cols[name] = slices.Clone(values)
	return d, nil
}

// WithTypeYears records the years in which a registered type had source data.
func (t *Table) WithTypeYears(name string, years []int) (*Table, error) {
	if !t.IsType(name) {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	d := t.derive()
	ys := slices.Clone(years)
	slices.Sort(ys)
	d.typeYears[name] = slices.Compact(ys)
	return d, nil
}

// Drop removes the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	d := t.derive()
	for _, name := range names {
		delete(d.cols, name)
		delete(d.typeYears, name)
		d.order = slices.DeleteFunc(d.order, func(s string) bool { return s == name })
		d.types = slices.DeleteFunc(d.types, func(s string) bool { return s == name })
	}
	return d
}

// Update returns a table where fn has been applied to every cell of column
// whose key matches sel. The selector's Columns field is ignored.
func (t *Table) Update(column string, sel Selector, fn func(k Key, v float64) float64) (*Table, error) {
	col, err := t.column(column)
	if err != nil {
		return nil, err
	}
	match := sel.matcher()
	out := slices.Clone(col)
	for i, k := range t.keys {
		if match(k) {
			out[i] = fn(k, out[i])
		}
	}
	d := t.derive()
	d.cols[column] = out
	return d, nil
}

// Map applies fn to every cell of column.
func (t *Table) Map(column string, fn func(k Key, v float64) float64) (*Table, error) {
	return t.Update(column, Selector{}, fn)
}

// yearIndex returns, per row, the 0-based position of its year among the
// sorted years of the same (age, sex).
func (t *Table) yearIndex() []int {
	idx := make([]int, len(t.keys))
	for i, k := range t.keys {
		if i > 0 && t.keys[i-1].Age == k.Age && t.keys[i-1].Sex == k.Sex {
			idx[i] = idx[i-1] + 1
		}
	}
	return idx
}

// YearIndex exposes the per-row year position used by the factor columns.
func (t *Table) YearIndex() []int { return t.yearIndex() }
