// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the shared vocabulary of the simulator:
//
//   - [State]: fixed-arity vector representing system state
//   - [Field]: closed sum type over vector fields, split into [Flow]
//     (dX/dt = f(X, t)) and [Map] (X' = f(X))
//   - [Integrator]: advances one state by one fixed step
//   - [Params]: immutable parameter snapshot of a field
//
// Fields are values. Changing a parameter produces a new field through
// [Configurable]; any history accumulated under the old field belongs to the
// ensemble that produced it and is discarded with it.
//
// # Example
//
//	f := physics.NewLorenz()
//	integ := integrators.NewRK4()
//	next, err := integ.Step(f, dynamo.State{1, 1, 1}, 0, 0.01)
//	if errors.Is(err, dynamo.ErrDivergent) {
//	    // reseed or freeze the trajectory
//	}
//
// # Thread Safety
//
// Fields are immutable and safe to share. Integrators keep scratch space
// and must not be shared between goroutines.
package dynamo
