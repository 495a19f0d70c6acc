package physics

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Duffing implements a nonlinear forced oscillator.
//
//	dx/dt = y
//	dy/dt = -γy - αx - βx³ + F·cos(ωt)
type Duffing struct {
	dynamo.Continuous
	gamma, f, omega, alpha, beta float64
}

func NewDuffing() Duffing {
	return Duffing{gamma: 0.3, f: 0.5, omega: 1.2, alpha: -1.0, beta: 1.0}
}

func (d Duffing) Kind() dynamo.Kind { return dynamo.KindDuffing }
func (d Duffing) Dim() int          { return 2 }

func (d Duffing) Derive(s dynamo.State, t float64) dynamo.State {
	x, y := s[0], s[1]
	return dynamo.State{y, -d.gamma*y - d.alpha*x - d.beta*x*x*x + d.f*math.Cos(d.omega*t)}
}

func (d Duffing) DefaultState() dynamo.State { return dynamo.State{1.0, 0.0} }

// Phase returns the forcing phase ωt wrapped into [0, 2π).
func (d Duffing) Phase(t float64) float64 {
	p := math.Mod(d.omega*t, 2*math.Pi)
	if p < 0 {
		p += 2 * math.Pi
	}
	return p
}

func (d Duffing) Period() float64 { return 2 * math.Pi / d.omega }

// Energy of the unforced, undamped oscillator.
func (d Duffing) Energy(s dynamo.State) float64 {
	x, v := s[0], s[1]
	return 0.5*v*v + 0.5*d.alpha*x*x + 0.25*d.beta*x*x*x*x
}

func (d Duffing) Params() dynamo.Params {
	return dynamo.Params{"gamma": d.gamma, "F": d.f, "omega": d.omega, "alpha": d.alpha, "beta": d.beta}
}

func (d Duffing) WithParam(n string, v float64) (dynamo.Field, error) {
	switch n {
	case "gamma":
		d.gamma = v
	case "F":
		d.f = v
	case "omega":
		if v <= 0 {
			return nil, outOfBounds(d.Kind(), n, v, "forcing frequency must be positive")
		}
		d.omega = v
	case "alpha":
		d.alpha = v
	case "beta":
		d.beta = v
	default:
		return nil, unknownParam(d.Kind(), n)
	}
	return admit(d, n, v)
}
