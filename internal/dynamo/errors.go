package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDivergent indicates a step produced a non-finite or out-of-bounds state.
	ErrDivergent = errors.New("dynamo: trajectory diverged")

	// ErrDomain indicates a map was evaluated outside its valid domain.
	ErrDomain = errors.New("dynamo: state outside map domain")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrUnknownParam indicates a parameter name the field does not define.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")

	// ErrUnknownField indicates a field that is neither a flow nor a map.
	ErrUnknownField = errors.New("dynamo: unknown field family")

	// ErrDimensionMismatch indicates mismatched state dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInsufficientSamples indicates an estimate was requested before enough data exists.
	ErrInsufficientSamples = errors.New("dynamo: not enough samples for estimate")

	// ErrStaleEnsemble indicates the ensemble was reset under an observer.
	ErrStaleEnsemble = errors.New("dynamo: ensemble was reset")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Index   int
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("trajectory %d step %d (t=%.4f): %v", e.Index, e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
