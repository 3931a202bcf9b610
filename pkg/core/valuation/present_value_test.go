package valuation

import (
	"math"
	"testing"

	"generational_accounting/pkg/core/cohort"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flowTable(t *testing.T, first, last int, pop float64, flow func(k cohort.Key) float64) *cohort.Table {
	t.Helper()
	tab, err := cohort.NewUniform(first, last, pop)
	require.NoError(t, err)
	values := make([]float64, tab.Len())
	for i := range values {
		values[i] = flow(tab.Key(i))
	}
	tab, err = tab.WithType("tax", values)
	require.NoError(t, err)
	return tab
}

func pvAt(t *testing.T, tab *cohort.Table, age int, sex cohort.Sex, year int) float64 {
	t.Helper()
	v, err := tab.Value(cohort.Key{Age: age, Sex: sex, Year: year}, "tax")
	require.NoError(t, err)
	return v
}

func TestAggregatePresentValue_RemainingHorizon(t *testing.T) {
	tab := flowTable(t, 2001, 2060, 1, func(cohort.Key) float64 { return 1 })

	pv, err := AggregatePresentValue(tab, "tax")
	require.NoError(t, err)

	assert.InDelta(t, 54.0, pvAt(t, pv, 0, cohort.Female, 2007), 1e-9)
	assert.InDelta(t, 54.0, pvAt(t, pv, 0, cohort.Male, 2007), 1e-9)
	assert.InDelta(t, 53.0, pvAt(t, pv, 0, cohort.Male, 2008), 1e-9)
	assert.True(t, pv.IsType("tax"))
	assert.True(t, pv.HasColumn(cohort.PopColumn))
}

func TestAggregatePresentValue_SignFollowsFlow(t *testing.T) {
	tab := flowTable(t, 2001, 2060, 1, func(cohort.Key) float64 { return -1 })

	pv, err := AggregatePresentValue(tab, "tax")
	require.NoError(t, err)
	assert.InDelta(t, -54.0, pvAt(t, pv, 0, cohort.Female, 2007), 1e-9)
}

func TestAggregatePresentValue_Boundaries(t *testing.T) {
	tab := flowTable(t, 2001, 2010, 2, func(k cohort.Key) float64 { return float64(k.Age) })

	pv, err := AggregatePresentValue(tab, "tax")
	require.NoError(t, err)

	// oldest age inherits nothing
	assert.InDelta(t, 200.0, pvAt(t, pv, 100, cohort.Male, 2003), 1e-9)
	// last year inherits nothing
	assert.InDelta(t, 2*40.0, pvAt(t, pv, 40, cohort.Female, 2010), 1e-9)
	// age 99 in 2009: own flow plus age 100 in 2010
	assert.InDelta(t, 2*99.0+2*100.0, pvAt(t, pv, 99, cohort.Female, 2009), 1e-9)
}

func TestAggregatePresentValue_Discounting(t *testing.T) {
	tab := flowTable(t, 2001, 2002, 1, func(cohort.Key) float64 { return 1 })

	pv, err := AggregatePresentValue(tab, "tax", WithDiscountRate(0.1))
	require.NoError(t, err)
	assert.InDelta(t, 1+1/1.1, pvAt(t, pv, 0, cohort.Male, 2001), 1e-12)
	assert.InDelta(t, 1/1.1, pvAt(t, pv, 0, cohort.Male, 2002), 1e-12)
}

func TestPresentValues_PerCapita(t *testing.T) {
	tab := flowTable(t, 2001, 2020, 3, func(cohort.Key) float64 { return 1 })

	res, err := PresentValues(tab, "tax")
	require.NoError(t, err)
	assert.Equal(t, "tax", res.Column)
	assert.Equal(t, 0.0, res.DiscountRate)

	agg := pvAt(t, res.Aggregate, 10, cohort.Male, 2001)
	pc := pvAt(t, res.PerCapita, 10, cohort.Male, 2001)
	assert.InDelta(t, 60.0, agg, 1e-9)
	assert.InDelta(t, 20.0, pc, 1e-9)

	direct, err := PerCapitaPresentValue(tab, "tax")
	require.NoError(t, err)
	assert.InDelta(t, pc, pvAt(t, direct, 10, cohort.Male, 2001), 1e-12)
}

func TestNeutralProfileHasZeroLifetimeValue(t *testing.T) {
	tab := flowTable(t, 2001, 2200, 1, neutralFlow)

	pv, err := AggregatePresentValue(tab, "tax")
	require.NoError(t, err)
	for year := 2001; year <= 2100; year++ {
		require.InDelta(t, 0.0, pvAt(t, pv, 0, cohort.Female, year), 1e-9, "year %d", year)
	}
	for age := 0; age <= cohort.MaxAge; age++ {
		want := 50 - math.Abs(float64(age)-50)
		assert.InDelta(t, want, pvAt(t, pv, age, cohort.Male, 2002), 1e-9, "age %d", age)
	}
}

func neutralFlow(k cohort.Key) float64 {
	switch {
	case k.Age < 50:
		return -1
	case k.Age < cohort.MaxAge:
		return 1
	}
	return 0
}

func TestAggregatePresentValue_Errors(t *testing.T) {
	tab := flowTable(t, 2001, 2002, 1, func(cohort.Key) float64 { return 1 })

	_, err := AggregatePresentValue(tab, cohort.PopColumn)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = AggregatePresentValue(tab, "missing")
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = AggregatePresentValue(tab.Drop(cohort.PopColumn), "tax")
	assert.ErrorIs(t, err, ErrMissingColumn)
}
