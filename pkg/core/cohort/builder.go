package cohort

import (
	"fmt"
	"math"
	"slices"
)

// Builder accumulates cells row by row. Cells never set are NaN.
type Builder struct {
	rows       map[Key]map[string]float64
	keys       []Key
	order      []string
	registered map[string]bool
	err        error
}

func NewBuilder() *Builder {
	return &Builder{
		rows:       make(map[Key]map[string]float64),
		registered: make(map[string]bool),
	}
}

// Set writes one cell. Later writes to the same cell win.
func (b *Builder) Set(k Key, column string, v float64) *Builder {
	if b.err != nil {
		return b
	}
	if err := k.Validate(); err != nil {
		b.err = err
		return b
	}
	row, ok := b.rows[k]
	if !ok {
		row = make(map[string]float64)
		b.rows[k] = row
		b.keys = append(b.keys, k)
	}
	if _, seen := row[column]; !seen && !slices.Contains(b.order, column) {
		b.order = append(b.order, column)
	}
	row[column] = v
	return b
}

// AddKey ensures the row exists even if no cell is set on it.
func (b *Builder) AddKey(k Key) *Builder {
	if b.err != nil {
		return b
	}
	if err := k.Validate(); err != nil {
		b.err = err
		return b
	}
	if _, ok := b.rows[k]; !ok {
		b.rows[k] = make(map[string]float64)
		b.keys = append(b.keys, k)
	}
	return b
}

// Register marks columns as flow types.
func (b *Builder) Register(columns ...string) *Builder {
	for _, c := range columns {
		b.registered[c] = true
		if !slices.Contains(b.order, c) {
			b.order = append(b.order, c)
		}
	}
	return b
}

func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, fmt.Errorf("build cohort table: %w", b.err)
	}
	columns := make([]Column, 0, len(b.order))
	for _, name := range b.order {
		values := make([]float64, len(b.keys))
		for i, k := range b.keys {
			v, ok := b.rows[k][name]
			if !ok {
				v = math.NaN()
			}
			values[i] = v
		}
		columns = append(columns, Column{Name: name, Values: values, Type: b.registered[name]})
	}
	return FromColumns(b.keys, columns...)
}
