package physics

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Hopf is the normal form of the supercritical Hopf bifurcation. For μ < 0
// the origin is a stable focus; for μ > 0 a limit cycle of radius √μ appears.
type Hopf struct {
	dynamo.Continuous
	mu float64
}

func NewHopf() Hopf { return Hopf{mu: 0.5} }

func (h Hopf) Kind() dynamo.Kind { return dynamo.KindHopf }
func (h Hopf) Dim() int          { return 2 }

func (h Hopf) Derive(s dynamo.State, _ float64) dynamo.State {
	x, y := s[0], s[1]
	r2 := x*x + y*y
	return dynamo.State{h.mu*x - y - x*r2, x + h.mu*y - y*r2}
}

// CycleRadius is the radius of the attracting limit cycle, 0 below threshold.
func (h Hopf) CycleRadius() float64 {
	if h.mu <= 0 {
		return 0
	}
	return math.Sqrt(h.mu)
}

func (h Hopf) DefaultState() dynamo.State { return dynamo.State{0.1, 0.0} }
func (h Hopf) Params() dynamo.Params      { return dynamo.Params{"mu": h.mu} }

func (h Hopf) WithParam(n string, v float64) (dynamo.Field, error) {
	if n != "mu" {
		return nil, unknownParam(h.Kind(), n)
	}
	h.mu = v
	return admit(h, n, v)
}

// FixedPoints returns the origin, the only equilibrium for every μ.
func (h Hopf) FixedPoints() []dynamo.State { return []dynamo.State{{0, 0}} }

func (h Hopf) Jacobian(s dynamo.State) []float64 {
	x, y := s[0], s[1]
	r2 := x*x + y*y
	return []float64{
		h.mu - r2 - 2*x*x, -1 - 2*x*y,
		1 - 2*x*y, h.mu - r2 - 2*y*y,
	}
}
