package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for integration steps.
var (
	// ErrInvalidState indicates a non-positive radius, NaN or Inf in the input.
	ErrInvalidState = errors.New("dynamo: invalid state (non-positive radius, NaN or Inf)")

	// ErrConvergence indicates the Kepler solver hit its iteration cap or diverged.
	ErrConvergence = errors.New("dynamo: kepler solver did not converge")

	// ErrUnsupportedRegime indicates an orbit type the configured solver refuses.
	ErrUnsupportedRegime = errors.New("dynamo: unsupported orbit regime")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrOutOfOrder indicates a step phase was invoked in the wrong order.
	ErrOutOfOrder = errors.New("dynamo: step phase called out of order")

	// ErrStepAborted indicates part1 failed for every particle it attempted.
	ErrStepAborted = errors.New("dynamo: step aborted, no particle advanced")
)

// ParticleError wraps a per-particle failure with enough context to
// reproduce it.
type ParticleError struct {
	Index   int
	Step    int
	Time    float64
	Wrapped error
}

func (e *ParticleError) Error() string {
	return fmt.Sprintf("particle %d, step %d (t=%.6g): %v", e.Index, e.Step, e.Time, e.Wrapped)
}

func (e *ParticleError) Unwrap() error {
	return e.Wrapped
}
