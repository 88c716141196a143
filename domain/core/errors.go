package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Table shape errors
	ErrMissingColumn    = errors.New("missing column")
	ErrNonNumericColumn = errors.New("column is not numeric")
	ErrInvalidRoles     = errors.New("invalid column roles")

	// Weight validation errors
	ErrNegativeWeight    = errors.New("negative weight")
	ErrNonPositiveWeight = errors.New("non-positive weight")
	ErrEmptyInput        = errors.New("no valid weights")
	ErrNonFiniteValue    = errors.New("non-finite value")

	// Estimation errors
	ErrEmptyGroup   = errors.New("group has no valid records")
	ErrInvalidLevel = errors.New("confidence level must be in (0,1)")

	// Crosstab errors
	ErrInvalidNormalizeMode  = errors.New("invalid normalize mode")
	ErrZeroNormalizationBase = errors.New("normalization base is zero")

	// Persistence errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// Error constructors with context
func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %q", ErrMissingColumn, column)
}

func NewNonNumericColumnError(column string) error {
	return fmt.Errorf("%w: %q", ErrNonNumericColumn, column)
}

func NewNegativeWeightError(column string, row int, value float64) error {
	return fmt.Errorf("%w in column %q at row %d: %g", ErrNegativeWeight, column, row, value)
}

func NewNonFiniteError(column string, row int, value float64) error {
	return fmt.Errorf("%w in column %q at row %d: %g", ErrNonFiniteValue, column, row, value)
}

// NewNonFiniteEstimateError reports an estimate that overflowed to ±Inf or NaN.
func NewNonFiniteEstimateError(estimate, indicator, group string) error {
	if group == "" {
		return fmt.Errorf("%w: %s of %q", ErrNonFiniteValue, estimate, indicator)
	}
	return fmt.Errorf("%w: %s of %q, group %q", ErrNonFiniteValue, estimate, indicator, group)
}

func NewEmptyGroupError(indicator, group string) error {
	if group == "" {
		return fmt.Errorf("%w: indicator %q", ErrEmptyGroup, indicator)
	}
	return fmt.Errorf("%w: indicator %q, group %q", ErrEmptyGroup, indicator, group)
}

func NewZeroBaseError(mode, key string) error {
	if key == "" {
		return fmt.Errorf("%w: mode %s", ErrZeroNormalizationBase, mode)
	}
	return fmt.Errorf("%w: mode %s, %q", ErrZeroNormalizationBase, mode, key)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInputError reports errors caused by the shape or content of the caller's table.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrNonNumericColumn) ||
		errors.Is(err, ErrInvalidRoles) ||
		errors.Is(err, ErrNegativeWeight) ||
		errors.Is(err, ErrNonPositiveWeight) ||
		errors.Is(err, ErrNonFiniteValue) ||
		errors.Is(err, ErrEmptyInput)
}

// IsParameterError reports errors caused by an out-of-range call parameter.
func IsParameterError(err error) bool {
	return errors.Is(err, ErrInvalidLevel) ||
		errors.Is(err, ErrInvalidNormalizeMode)
}

func IsEstimationError(err error) bool {
	return errors.Is(err, ErrEmptyGroup) ||
		errors.Is(err, ErrZeroNormalizationBase)
}
