// Package physics provides the vector fields the simulator can run.
//
// Each model is an immutable value implementing either [dynamo.Flow] or
// [dynamo.Map]:
//
//   - [VanDerPol]: relaxation oscillator with a stable limit cycle
//   - [Lorenz]: butterfly attractor
//   - [Duffing]: periodically forced double-well oscillator
//   - [Logistic]: one-dimensional logistic map on [0, 1]
//   - [Betatron]: transverse accelerator one-turn map with multipole kicks
//     and optional OGY control
//   - [Rossler], [Henon], [Hopf], [Pendulum]: companions used by the
//     section and bifurcation demos
//
// Parameters are changed with WithParam, which returns a new field and
// leaves the receiver untouched.
//
// # Energy Conservation
//
// Conservative models implement [dynamo.Hamiltonian]:
//
//	p := physics.NewPendulum()
//	e0 := p.Energy(dynamo.State{0.5, 0})
package physics
