package physics

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Henon is the Hénon map x' = 1 - a·x² + y, y' = b·x.
type Henon struct {
	dynamo.Discrete
	a, b float64
}

func NewHenon() Henon { return Henon{a: 1.4, b: 0.3} }

func (h Henon) Kind() dynamo.Kind { return dynamo.KindHenon }
func (h Henon) Dim() int          { return 2 }

func (h Henon) Next(s dynamo.State) (dynamo.State, error) {
	x, y := s[0], s[1]
	return dynamo.State{1 - h.a*x*x + y, h.b * x}, nil
}

// FixedPoints returns the two fixed points, or nil when they are complex.
func (h Henon) FixedPoints() []dynamo.State {
	disc := (1-h.b)*(1-h.b) + 4*h.a
	if disc < 0 || h.a == 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	x1 := (-(1 - h.b) + sq) / (2 * h.a)
	x2 := (-(1 - h.b) - sq) / (2 * h.a)
	return []dynamo.State{{x1, h.b * x1}, {x2, h.b * x2}}
}

func (h Henon) DefaultState() dynamo.State { return dynamo.State{0.0, 0.0} }
func (h Henon) Params() dynamo.Params      { return dynamo.Params{"a": h.a, "b": h.b} }

func (h Henon) WithParam(n string, v float64) (dynamo.Field, error) {
	switch n {
	case "a":
		h.a = v
	case "b":
		h.b = v
	default:
		return nil, unknownParam(h.Kind(), n)
	}
	return admit(h, n, v)
}

func (h Henon) Jacobian(s dynamo.State) []float64 {
	return []float64{
		-2 * h.a * s[0], 1,
		h.b, 0,
	}
}
