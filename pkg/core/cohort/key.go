package cohort

import (
	"fmt"
	"strings"
)

const (
	// MaxAge is the open-ended top age ("100 and over").
	MaxAge = 100

	PopColumn           = "pop"
	GrowthColumn        = "grth"
	DiscountColumn      = "dsct"
	ActualizationColumn = "actualization"
)

// Sex is coded 0 for male and 1 for female.
type Sex int

const (
	Male   Sex = 0
	Female Sex = 1
)

// Sexes lists both sexes in index order.
var Sexes = []Sex{Male, Female}

func (s Sex) Valid() bool { return s == Male || s == Female }

func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	}
	return fmt.Sprintf("Sex(%d)", int(s))
}

// Key identifies one cell of a cohort table.
type Key struct {
	Age  int `json:"age"`
	Sex  Sex `json:"sex"`
	Year int `json:"year"`
}

func (k Key) String() string {
	return fmt.Sprintf("(%d, %d, %d)", k.Age, int(k.Sex), k.Year)
}

// Validate checks the key lies inside the table domain.
func (k Key) Validate() error {
	if k.Age < 0 || k.Age > MaxAge {
		return fmt.Errorf("%w: age %d outside 0..%d", ErrInvalidKey, k.Age, MaxAge)
	}
	if !k.Sex.Valid() {
		return fmt.Errorf("%w: sex %d", ErrInvalidKey, int(k.Sex))
	}
	return nil
}

// less orders keys by age, then sex, then year.
func (k Key) less(o Key) bool {
	if k.Age != o.Age {
		return k.Age < o.Age
	}
	if k.Sex != o.Sex {
		return k.Sex < o.Sex
	}
	return k.Year < o.Year
}

// AgeSex is the (age, sex) part of a key.
type AgeSex struct {
	Age int
	Sex Sex
}

// Dimension names one of the three index levels.
type Dimension int

const (
	DimAge Dimension = iota
	DimSex
	DimYear
)

func (d Dimension) String() string {
	switch d {
	case DimAge:
		return "age"
	case DimSex:
		return "sex"
	case DimYear:
		return "year"
	}
	return fmt.Sprintf("Dimension(%d)", int(d))
}

// ParseDimension maps "age", "sex" or "year" to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "age":
		return DimAge, nil
	case "sex":
		return DimSex, nil
	case "year":
		return DimYear, nil
	}
	return 0, fmt.Errorf("%w: unknown dimension %q", ErrMissingDimension, s)
}

func (d Dimension) of(k Key) int {
	switch d {
	case DimAge:
		return k.Age
	case DimSex:
		return int(k.Sex)
	default:
		return k.Year
	}
}
