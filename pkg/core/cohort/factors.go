package cohort

import "math"

// GenerateGrowthFactor sets the grth column to (1+g)^k, k being the year
// position within each (age, sex).
func (t *Table) GenerateGrowthFactor(g float64) *Table {
	return t.factor(GrowthColumn, 1+g)
}

// GenerateDiscountFactor sets the dsct column to (1+r)^-k.
func (t *Table) GenerateDiscountFactor(r float64) *Table {
	return t.factor(DiscountColumn, 1/(1+r))
}

// GenerateActualization sets the actualization column to ((1+a)/(1+b))^k.
func (t *Table) GenerateActualization(a, b float64) *Table {
	return t.factor(ActualizationColumn, (1+a)/(1+b))
}

func (t *Table) factor(name string, base float64) *Table {
	idx := t.yearIndex()
	values := make([]float64, len(idx))
	for i, k := range idx {
		values[i] = math.Pow(base, float64(k))
	}
	d := t.derive()
	if _, ok := d.cols[name]; !ok {
		d.order = append(d.order, name)
	}
	d.cols[name] = values
	return d
}
