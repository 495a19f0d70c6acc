package integrators

import (
	"fmt"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Euler is the forward Euler method, kept as a first-order baseline.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(f dynamo.Field, x dynamo.State, t, dt float64) (dynamo.State, error) {
	if len(x) != f.Dim() {
		return nil, fmt.Errorf("%w: state has %d components, %s needs %d",
			dynamo.ErrDimensionMismatch, len(x), f.Kind(), f.Dim())
	}

	switch fld := f.(type) {
	case dynamo.Map:
		return stepMap(fld, x, t)
	case dynamo.Flow:
		dx := fld.Derive(x, t)
		result := make(dynamo.State, len(x))
		for i := range x {
			result[i] = x[i] + dt*dx[i]
		}
		return check(f, result, t+dt)
	default:
		return nil, fmt.Errorf("%w: %T", dynamo.ErrUnknownField, f)
	}
}
