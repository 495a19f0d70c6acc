package physics

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Rossler implements the Rössler attractor:
//
//	dx/dt = -y - z
//	dy/dt = x + a·y
//	dz/dt = b + z(x - c)
type Rossler struct {
	dynamo.Continuous
	a, b, c float64
}

func NewRossler() Rossler           { return Rossler{a: 0.2, b: 0.2, c: 5.7} }
func (r Rossler) Kind() dynamo.Kind { return dynamo.KindRossler }
func (r Rossler) Dim() int          { return 3 }

func (r Rossler) Derive(s dynamo.State, _ float64) dynamo.State {
	x, y, z := s[0], s[1], s[2]
	return dynamo.State{-y - z, x + r.a*y, r.b + z*(x-r.c)}
}

func (r Rossler) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }
func (r Rossler) Params() dynamo.Params {
	return dynamo.Params{"a": r.a, "b": r.b, "c": r.c}
}

func (r Rossler) WithParam(n string, v float64) (dynamo.Field, error) {
	switch n {
	case "a":
		r.a = v
	case "b":
		r.b = v
	case "c":
		r.c = v
	default:
		return nil, unknownParam(r.Kind(), n)
	}
	return admit(r, n, v)
}

// FixedPoints solves x² - c·x + a·b = 0 with y = -x/a, z = x/a. There are
// none when the discriminant is negative.
func (r Rossler) FixedPoints() []dynamo.State {
	disc := r.c*r.c - 4*r.a*r.b
	if disc < 0 || r.a == 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	var fps []dynamo.State
	for _, x := range []float64{(r.c - sq) / 2, (r.c + sq) / 2} {
		fps = append(fps, dynamo.State{x, -x / r.a, x / r.a})
	}
	return fps
}

func (r Rossler) Jacobian(s dynamo.State) []float64 {
	x, z := s[0], s[2]
	return []float64{
		0, -1, -1,
		1, r.a, 0,
		z, 0, x - r.c,
	}
}
