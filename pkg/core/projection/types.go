package projection

import (
	"errors"
	"fmt"
	"strings"

	"generational_accounting/pkg/core/cohort"
)

var (
	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = fmt.Errorf("projection: missing column: %w", cohort.ErrColumnNotFound)

	// ErrColumnAlreadyExists is returned when a profile would overwrite a column.
	ErrColumnAlreadyExists = fmt.Errorf("projection: column already exists: %w", cohort.ErrDuplicateColumn)

	ErrMissingRate       = errors.New("projection: missing rate")
	ErrMissingYearLength = errors.New("projection: year length must be positive")
	ErrInvalidMethod     = errors.New("projection: invalid method")
)

// ============================================================================
// POPULATION METHODS
// ============================================================================

// PopulationMethod selects how population is extended past the last observed year.
type PopulationMethod int

const (
	HoldConstant PopulationMethod = iota
	ExpGrowth
)

func (m PopulationMethod) String() string {
	switch m {
	case HoldConstant:
		return "constant"
	case ExpGrowth:
		return "exp_growth"
	}
	return fmt.Sprintf("PopulationMethod(%d)", int(m))
}

// ParsePopulationMethod accepts "constant" and "exp_growth".
func ParsePopulationMethod(s string) (PopulationMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "constant", "hold_constant":
		return HoldConstant, nil
	case "exp_growth", "exponential":
		return ExpGrowth, nil
	}
	return 0, fmt.Errorf("%w: population method %q", ErrInvalidMethod, s)
}

func (m PopulationMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *PopulationMethod) UnmarshalText(b []byte) error {
	v, err := ParsePopulationMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// PopulationProjection describes one population extension.
type PopulationProjection struct {
	// YearLength is the horizon measured from the first observed year.
	YearLength int
	Method     PopulationMethod
	// GrowthRate is required for ExpGrowth.
	GrowthRate *float64
}

// ============================================================================
// TAX METHODS
// ============================================================================

// TaxMethod selects how per-capita profiles are projected over time.
type TaxMethod int

const (
	// PerCapita grows each cell with productivity.
	PerCapita TaxMethod = iota
	// Aggregate keeps aggregates on the path of productivity growth by
	// freezing population at the last known year.
	Aggregate
	// Desynchronized grows taxes with productivity and payments with prices.
	Desynchronized
)

func (m TaxMethod) String() string {
	switch m {
	case PerCapita:
		return "per_capita"
	case Aggregate:
		return "aggregate"
	case Desynchronized:
		return "desynchronized"
	}
	return fmt.Sprintf("TaxMethod(%d)", int(m))
}

func ParseTaxMethod(s string) (TaxMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "per_capita", "percapita":
		return PerCapita, nil
	case "aggregate":
		return Aggregate, nil
	case "desynchronized":
		return Desynchronized, nil
	}
	return 0, fmt.Errorf("%w: tax method %q", ErrInvalidMethod, s)
}

func (m TaxMethod) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *TaxMethod) UnmarshalText(b []byte) error {
	v, err := ParseTaxMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// TaxProjection describes how registered columns are projected.
type TaxProjection struct {
	Method TaxMethod
	// GrowthRate is the productivity growth g. Required.
	GrowthRate *float64
	// InflationRate drives payments under Desynchronized.
	InflationRate *float64
	// Columns to project; empty means every registered type. Under
	// Desynchronized these are the productivity-indexed taxes.
	Columns []string
	// Payments are the price-indexed columns under Desynchronized.
	Payments []string
}

// Rate returns a pointer to r, for the optional rate fields.
func Rate(r float64) *float64 { return &r }
