package sim

import (
	"errors"
	"fmt"
)

// Domain errors for stepping operations.
var (
	// ErrNonFinite indicates NaN or Inf in a field or right-hand side.
	ErrNonFinite = errors.New("sim: non-finite value (NaN or Inf detected)")

	// ErrNegativeDensity indicates a field dropped below zero beyond
	// rounding noise.
	ErrNegativeDensity = errors.New("sim: negative surface density")

	// ErrStepTooSmall indicates the adaptive time step fell below the
	// configured minimum.
	ErrStepTooSmall = errors.New("sim: adaptive time step below minimum")

	// ErrRetriesExhausted indicates repeated truncation-error rejections.
	ErrRetriesExhausted = errors.New("sim: step retry limit exceeded")

	// ErrNotStepping indicates Step was called on a failed stepper.
	ErrNotStepping = errors.New("sim: stepper is in failed state")
)

// StepError attaches the offending field, cell index and simulated time to a
// fatal stepping error.
type StepError struct {
	Field   string
	Index   int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("field %q cell %d at t=%.6e: %v", e.Field, e.Index, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error { return e.Wrapped }
