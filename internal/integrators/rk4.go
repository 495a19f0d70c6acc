package integrators

import (
	"fmt"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// RK4 is the classical fourth-order Runge-Kutta method. Maps are advanced by
// a single application of Next. An RK4 holds scratch space and must not be
// shared between trajectories.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Step(f dynamo.Field, x dynamo.State, t, dt float64) (dynamo.State, error) {
	if len(x) != f.Dim() {
		return nil, fmt.Errorf("%w: state has %d components, %s needs %d",
			dynamo.ErrDimensionMismatch, len(x), f.Kind(), f.Dim())
	}

	switch fld := f.(type) {
	case dynamo.Map:
		return stepMap(fld, x, t)
	case dynamo.Flow:
		return check(f, r.flow(fld, x, t, dt), t+dt)
	default:
		return nil, fmt.Errorf("%w: %T", dynamo.ErrUnknownField, f)
	}
}

func (r *RK4) flow(dyn dynamo.Flow, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, dyn.Derive(x, t))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	copy(r.k2, dyn.Derive(r.scratch, t+dt*0.5))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	copy(r.k3, dyn.Derive(r.scratch, t+dt*0.5))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	copy(r.k4, dyn.Derive(r.scratch, t+dt))

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result
}
