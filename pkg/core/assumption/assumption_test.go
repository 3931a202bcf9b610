package assumption

import (
	"errors"
	"math"
	"testing"

	"generational_accounting/pkg/core/projection"
)

func baseline() ScenarioParameters {
	return ScenarioParameters{
		Name:             "default",
		GrowthRate:       0.01,
		DiscountRate:     0.03,
		YearLength:       200,
		ProjectionMethod: projection.HoldConstant,
		TaxMethod:        projection.PerCapita,
		NetGovWealth:     10,
		NetGovSpendings:  ScalarSpendings(5),
		Taxes:            []string{"vat"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *ScenarioParameters)
		ok     bool
	}{
		{"baseline", func(*ScenarioParameters) {}, true},
		{"empty name", func(p *ScenarioParameters) { p.Name = "" }, false},
		{"no horizon", func(p *ScenarioParameters) { p.YearLength = 0 }, false},
		{"bad discount", func(p *ScenarioParameters) { p.DiscountRate = -1 }, false},
		{"desync without inflation", func(p *ScenarioParameters) { p.TaxMethod = projection.Desynchronized }, false},
		{"unknown method", func(p *ScenarioParameters) { p.TaxMethod = projection.TaxMethod(7) }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := baseline()
			tc.mutate(&p)
			err := p.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidParameters) {
				t.Errorf("expected ErrInvalidParameters, got %v", err)
			}
		})
	}
}

func TestSpendingsPresentValue(t *testing.T) {
	if v := ScalarSpendings(7).PresentValue(0.1, 0.2, 50, 2001); v != 7 {
		t.Errorf("expected scalar 7, got %.4f", v)
	}

	annual := Spendings{Mode: SpendingsAnnual, Value: 100}
	if v := annual.PresentValue(0, 0, 3, 2001); math.Abs(v-300) > 1e-9 {
		t.Errorf("expected 300, got %.4f", v)
	}
	want := 100*1.1/1.21 + 100*math.Pow(1.1/1.21, 2)
	if v := annual.PresentValue(0.1, 0.21, 2, 2001); math.Abs(v-want) > 1e-9 {
		t.Errorf("expected %.6f, got %.6f", want, v)
	}

	series := Spendings{Mode: SpendingsSeries, Series: map[int]float64{2001: 10, 2002: 11}}
	if v := series.PresentValue(0, 0.1, 0, 2001); math.Abs(v-20) > 1e-9 {
		t.Errorf("expected 20, got %.6f", v)
	}
}

func TestScenarioSet_NoAliasing(t *testing.T) {
	alt := baseline()
	alt.Name = "alternate"
	alt.GrowthRate = 0.02

	set, err := NewScenarioSet(baseline(), alt)
	if err != nil {
		t.Fatalf("NewScenarioSet failed: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 scenarios, got %d", set.Len())
	}

	p, _ := set.Get("default")
	p.Taxes[0] = "changed"
	p.GrowthRate = 9

	again, _ := set.Get("default")
	if again.Taxes[0] != "vat" || again.GrowthRate != 0.01 {
		t.Errorf("scenario set was modified through a returned copy: %+v", again)
	}

	if _, err := set.Get("missing"); !errors.Is(err, ErrUnknownScenario) {
		t.Errorf("expected ErrUnknownScenario, got %v", err)
	}
	if _, err := NewScenarioSet(baseline(), baseline()); !errors.Is(err, ErrDuplicateScenario) {
		t.Errorf("expected ErrDuplicateScenario, got %v", err)
	}
}

func TestTaxProjectionFromScenario(t *testing.T) {
	p := baseline()
	p.TaxMethod = projection.Desynchronized
	inflation := 0.02
	p.InflationRate = &inflation
	p.Payments = []string{"pension"}

	tp := p.Tax()
	if tp.Method != projection.Desynchronized || *tp.InflationRate != 0.02 {
		t.Errorf("unexpected projection %+v", tp)
	}
	if len(tp.Columns) != 1 || tp.Columns[0] != "vat" || tp.Payments[0] != "pension" {
		t.Errorf("expected taxes [vat] and payments [pension], got %v / %v", tp.Columns, tp.Payments)
	}
}
