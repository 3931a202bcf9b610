package cohort

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(t *testing.T, first, last int, pop float64) *Table {
	t.Helper()
	tab, err := NewUniform(first, last, pop)
	require.NoError(t, err)
	return tab
}

func constantColumn(t *testing.T, tab *Table, name string, v float64) *Table {
	t.Helper()
	values := make([]float64, tab.Len())
	for i := range values {
		values[i] = v
	}
	out, err := tab.WithType(name, values)
	require.NoError(t, err)
	return out
}

func TestFromColumnsValidation(t *testing.T) {
	tests := []struct {
		name string
		keys []Key
		pop  []float64
		want error
	}{
		{"empty", nil, nil, ErrEmptyTable},
		{"age too high", []Key{{Age: 101, Sex: Male, Year: 2000}}, []float64{1}, ErrInvalidKey},
		{"negative age", []Key{{Age: -1, Sex: Male, Year: 2000}}, []float64{1}, ErrInvalidKey},
		{"bad sex", []Key{{Age: 3, Sex: 2, Year: 2000}}, []float64{1}, ErrInvalidKey},
		{"duplicate", []Key{{Age: 3, Sex: 0, Year: 2000}, {Age: 3, Sex: 0, Year: 2000}}, []float64{1, 2}, ErrDuplicateKey},
		{"length", []Key{{Age: 3, Sex: 0, Year: 2000}}, []float64{1, 2}, ErrLengthMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.keys, tc.pop)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRowsAreSortedAndBoundsDerived(t *testing.T) {
	keys := []Key{
		{Age: 5, Sex: Female, Year: 2003},
		{Age: 1, Sex: Male, Year: 2001},
		{Age: 5, Sex: Male, Year: 2002},
	}
	tab, err := New(keys, []float64{3, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, Key{Age: 1, Sex: Male, Year: 2001}, tab.Key(0))
	assert.Equal(t, Bounds{AgeMin: 1, AgeMax: 5, YearMin: 2001, YearMax: 2003}, tab.Bounds())

	v, err := tab.Value(Key{Age: 5, Sex: Female, Year: 2003}, PopColumn)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	ages, sexes, years := tab.IndexSets()
	assert.Equal(t, []int{1, 5}, ages)
	assert.Equal(t, []Sex{Male, Female}, sexes)
	assert.Equal(t, []int{2001, 2002, 2003}, years)
}

func TestNewColumn(t *testing.T) {
	tab := uniform(t, 2001, 2003, 1)

	withTax, err := tab.NewColumn("tax")
	require.NoError(t, err)
	assert.True(t, withTax.IsType("tax"))
	assert.False(t, tab.HasColumn("tax"), "source table must not change")

	col, err := withTax.Column("tax")
	require.NoError(t, err)
	for _, v := range col {
		assert.True(t, math.IsNaN(v))
	}

	_, err = withTax.NewColumn("tax")
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = tab.Column("tax")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestFactors(t *testing.T) {
	tab := uniform(t, 2001, 2005, 1)
	tab = tab.GenerateGrowthFactor(0.05).GenerateDiscountFactor(0.03).GenerateActualization(0.05, 0.03)

	for _, k := range []Key{{Age: 0, Sex: Male, Year: 2001}, {Age: 40, Sex: Female, Year: 2004}} {
		n := float64(k.Year - 2001)
		grth, err := tab.Value(k, GrowthColumn)
		require.NoError(t, err)
		dsct, err := tab.Value(k, DiscountColumn)
		require.NoError(t, err)
		act, err := tab.Value(k, ActualizationColumn)
		require.NoError(t, err)

		assert.InDelta(t, math.Pow(1.05, n), grth, 1e-12)
		assert.InDelta(t, math.Pow(1.03, -n), dsct, 1e-12)
		assert.InDelta(t, math.Pow(1.05/1.03, n), act, 1e-12)
	}
}

func TestFilter(t *testing.T) {
	tab := constantColumn(t, uniform(t, 2001, 2010, 2), "tax", 1)

	sub, err := tab.Filter(Selector{Ages: AgeRange(10, 19), Sexes: []Sex{Female}, Years: []int{2005}, Columns: []string{"tax"}})
	require.NoError(t, err)
	assert.Equal(t, 10, sub.Len())
	assert.Equal(t, []string{"tax"}, sub.Columns())
	assert.True(t, sub.IsType("tax"))
	assert.Equal(t, 2005, sub.YearMin())

	_, err = tab.Filter(Selector{Columns: []string{"nope"}})
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = tab.Filter(Selector{Years: []int{1990}})
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestGroupSumAndPivot(t *testing.T) {
	tab := uniform(t, 2001, 2003, 2)

	bySex, err := tab.GroupSum(PopColumn, DimSex)
	require.NoError(t, err)
	male, ok := bySex.Value(int(Male))
	require.True(t, ok)
	assert.Equal(t, 101*3*2.0, male)
	assert.Equal(t, 2*101*3*2.0, bySex.Total())

	byYearSex, err := tab.GroupSum(PopColumn, DimYear, DimSex)
	require.NoError(t, err)
	pivot, err := byYearSex.Pivot()
	require.NoError(t, err)
	r, c := pivot.Data.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	v, ok := pivot.At(2002, int(Female))
	require.True(t, ok)
	assert.Equal(t, 202.0, v)

	_, err = bySex.Pivot()
	assert.Error(t, err)

	_, err = tab.GroupSum(PopColumn, DimAge, DimAge)
	assert.Error(t, err)
}

func TestAgeBucketKeepsPerCapitaValues(t *testing.T) {
	tab := constantColumn(t, uniform(t, 2001, 2002, 3), "sub", -0.5)

	bucketed, err := tab.AgeBucket(5, PerCapitaValues)
	require.NoError(t, err)

	ages, _, _ := bucketed.IndexSets()
	assert.Equal(t, 0, ages[0])
	assert.Equal(t, 100, ages[len(ages)-1])
	assert.Len(t, ages, 21)

	sub, err := bucketed.Column("sub")
	require.NoError(t, err)
	for _, v := range sub {
		assert.InDelta(t, -0.5, v, 1e-12)
	}
	pop, err := bucketed.Value(Key{Age: 5, Sex: Male, Year: 2001}, PopColumn)
	require.NoError(t, err)
	assert.Equal(t, 15.0, pop)

	_, err = tab.AgeBucket(0, PerCapitaValues)
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestAgeBucketAggregateValues(t *testing.T) {
	tab := constantColumn(t, uniform(t, 2001, 2001, 4), "pv", 8)

	bucketed, err := tab.AgeBucket(10, AggregateValues, "pv")
	require.NoError(t, err)
	v, err := bucketed.Value(Key{Age: 20, Sex: Female, Year: 2001}, "pv")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-12)
}

func TestExtractGeneration(t *testing.T) {
	tab := uniform(t, 2001, 2010, 1)
	tab, err := tab.Map(PopColumn, func(k Key, _ float64) float64 { return float64(k.Year) })
	require.NoError(t, err)

	gen, err := tab.ExtractGeneration(2005, 30, PopColumn)
	require.NoError(t, err)
	assert.Equal(t, 20, gen.Len(), "ten years for two sexes")
	for _, k := range gen.Keys() {
		assert.Equal(t, 1975, k.Year-k.Age)
	}

	_, err = tab.ExtractGeneration(2005, 30, "tax")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestComputeNetTransfers(t *testing.T) {
	tab := constantColumn(t, uniform(t, 2001, 2001, 1), "vat", 3)
	tab = constantColumn(t, tab, "pension", 1)

	net, err := tab.ComputeNetTransfers("net", []string{"vat"}, []string{"pension"})
	require.NoError(t, err)
	v, err := net.Value(Key{Age: 50, Sex: Female, Year: 2001}, "net")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
	assert.True(t, net.IsType("net"))

	_, err = tab.ComputeNetTransfers("net", nil, nil)
	assert.ErrorIs(t, err, ErrNoTransfers)
	_, err = tab.ComputeNetTransfers("net", []string{"missing"}, nil)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestUpdateDoesNotAlias(t *testing.T) {
	base := constantColumn(t, uniform(t, 2001, 2002, 1), "tax", 1)
	clone := base.Clone()

	shocked, err := clone.Update("tax", Selector{Ages: AgeRange(20, 64)}, func(_ Key, v float64) float64 { return v * 2 })
	require.NoError(t, err)

	k := Key{Age: 30, Sex: Male, Year: 2001}
	before, _ := base.Value(k, "tax")
	cloned, _ := clone.Value(k, "tax")
	after, _ := shocked.Value(k, "tax")
	assert.Equal(t, 1.0, before)
	assert.Equal(t, 1.0, cloned)
	assert.Equal(t, 2.0, after)

	child, _ := shocked.Value(Key{Age: 10, Sex: Male, Year: 2001}, "tax")
	assert.Equal(t, 1.0, child)
}

func TestCombineFirstKeepsExistingRows(t *testing.T) {
	a, err := New([]Key{{Age: 0, Sex: Male, Year: 2001}}, []float64{5})
	require.NoError(t, err)
	b, err := New([]Key{{Age: 0, Sex: Male, Year: 2001}, {Age: 0, Sex: Male, Year: 2002}}, []float64{9, 7})
	require.NoError(t, err)

	merged, err := a.CombineFirst(b)
	require.NoError(t, err)
	require.Equal(t, 2, merged.Len())
	v, _ := merged.Value(Key{Age: 0, Sex: Male, Year: 2001}, PopColumn)
	assert.Equal(t, 5.0, v)
	v, _ = merged.Value(Key{Age: 0, Sex: Male, Year: 2002}, PopColumn)
	assert.Equal(t, 7.0, v)
}

func TestBuilder(t *testing.T) {
	tab, err := NewBuilder().
		Set(Key{Age: 1, Sex: Female, Year: 2001}, PopColumn, 4).
		Set(Key{Age: 0, Sex: Male, Year: 2001}, "tax", 2).
		Register("tax").
		Build()
	require.NoError(t, err)
	assert.Equal(t, 2, tab.Len())
	assert.True(t, tab.IsType("tax"))
	v, _ := tab.Value(Key{Age: 0, Sex: Male, Year: 2001}, PopColumn)
	assert.True(t, math.IsNaN(v))

	_, err = NewBuilder().Set(Key{Age: 200}, PopColumn, 1).Build()
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestParseDimension(t *testing.T) {
	for _, d := range []Dimension{DimAge, DimSex, DimYear} {
		got, err := ParseDimension(" " + strings.ToUpper(d.String()) + " ")
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseDimension("region")
	assert.ErrorIs(t, err, ErrMissingDimension)
}
