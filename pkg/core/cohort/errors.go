package cohort

import "errors"

var (
	// ErrColumnNotFound is returned when a named column is absent from the table.
	ErrColumnNotFound = errors.New("cohort: column not found")

	// ErrDuplicateColumn is returned when a column name is already taken.
	ErrDuplicateColumn = errors.New("cohort: column already exists")

	// ErrNotRegistered is returned when a column exists but is not a registered flow type.
	ErrNotRegistered = errors.New("cohort: column is not a registered type")

	// ErrMissingDimension is returned when a row or grouping lacks one of age, sex or year.
	ErrMissingDimension = errors.New("cohort: missing dimension")

	ErrDuplicateKey   = errors.New("cohort: duplicate key")
	ErrInvalidKey     = errors.New("cohort: invalid key")
	ErrLengthMismatch = errors.New("cohort: column length does not match table length")
	ErrInvalidStep    = errors.New("cohort: age bucket step must be positive")
	ErrEmptyTable     = errors.New("cohort: empty table")
)
