package physics

import "github.com/san-kum/chaoslab/internal/dynamo"

// VanDerPol implements the Van der Pol oscillator.
// State: [x, y] where y = dx/dt
// Equations:
//
//	dx/dt = y
//	dy/dt = μ(1 - x²)y - x
type VanDerPol struct {
	dynamo.Continuous
	mu float64 // Nonlinearity parameter
}

func NewVanDerPol() VanDerPol {
	return VanDerPol{
		mu: 1.0, // Classic value for limit cycle
	}
}

func (v VanDerPol) Kind() dynamo.Kind { return dynamo.KindVanDerPol }
func (v VanDerPol) Dim() int          { return 2 }
func (v VanDerPol) Mu() float64       { return v.mu }

func (v VanDerPol) Derive(state dynamo.State, _ float64) dynamo.State {
	x, y := state[0], state[1]

	dx := y
	dy := v.mu*(1-x*x)*y - x

	return dynamo.State{dx, dy}
}

// Energy is the harmonic energy (x²+y²)/2, conserved only when μ = 0.
func (v VanDerPol) Energy(state dynamo.State) float64 {
	return 0.5 * (state[0]*state[0] + state[1]*state[1])
}

func (v VanDerPol) DefaultState() dynamo.State {
	return dynamo.State{2.0, 0.0}
}

func (v VanDerPol) Params() dynamo.Params {
	return dynamo.Params{"mu": v.mu}
}

func (v VanDerPol) WithParam(name string, value float64) (dynamo.Field, error) {
	if name != "mu" {
		return nil, unknownParam(v.Kind(), name)
	}
	v.mu = value
	return admit(v, name, value)
}

// FixedPoints returns the origin, unstable for μ > 0.
func (v VanDerPol) FixedPoints() []dynamo.State { return []dynamo.State{{0, 0}} }

func (v VanDerPol) Jacobian(s dynamo.State) []float64 {
	x, y := s[0], s[1]
	return []float64{
		0, 1,
		-2*v.mu*x*y - 1, v.mu * (1 - x*x),
	}
}
