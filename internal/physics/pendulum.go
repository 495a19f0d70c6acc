package physics

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Pendulum is the simple pendulum in units of g/L:
//
//	dθ/dt = ω
//	dω/dt = -(g/L)·sin θ - damping·ω
type Pendulum struct {
	dynamo.Continuous
	gOverL  float64
	damping float64
}

func NewPendulum() Pendulum {
	return Pendulum{
		gOverL:  1.0,
		damping: 0.0,
	}
}

func (p Pendulum) Kind() dynamo.Kind { return dynamo.KindPendulum }
func (p Pendulum) Dim() int          { return 2 }

func (p Pendulum) Derive(x dynamo.State, _ float64) dynamo.State {
	theta, omega := x[0], x[1]
	return dynamo.State{omega, -p.gOverL*math.Sin(theta) - p.damping*omega}
}

// Energy is ω²/2 - (g/L)·cos θ, conserved when damping is zero.
func (p Pendulum) Energy(x dynamo.State) float64 {
	return 0.5*x[1]*x[1] - p.gOverL*math.Cos(x[0])
}

func (p Pendulum) DefaultState() dynamo.State { return dynamo.State{0.5, 0.0} }

func (p Pendulum) Params() dynamo.Params {
	return dynamo.Params{
		"g_over_l": p.gOverL,
		"damping":  p.damping,
	}
}

func (p Pendulum) WithParam(name string, value float64) (dynamo.Field, error) {
	switch name {
	case "g_over_l":
		if value <= 0 {
			return nil, outOfBounds(p.Kind(), name, value, "must be positive")
		}
		p.gOverL = value
	case "damping":
		if value < 0 {
			return nil, outOfBounds(p.Kind(), name, value, "must be non-negative")
		}
		p.damping = value
	default:
		return nil, unknownParam(p.Kind(), name)
	}
	return admit(p, name, value)
}

// FixedPoints returns the hanging and the inverted rest states.
func (p Pendulum) FixedPoints() []dynamo.State {
	return []dynamo.State{{0, 0}, {math.Pi, 0}}
}

func (p Pendulum) Jacobian(x dynamo.State) []float64 {
	return []float64{
		0, 1,
		-p.gOverL * math.Cos(x[0]), -p.damping,
	}
}
