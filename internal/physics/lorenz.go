package physics

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

type Lorenz struct {
	dynamo.Continuous
	sigma, rho, beta float64
}

func NewLorenz() Lorenz            { return Lorenz{sigma: 10.0, rho: 28.0, beta: 8.0 / 3.0} }
func (l Lorenz) Kind() dynamo.Kind { return dynamo.KindLorenz }
func (l Lorenz) Dim() int          { return 3 }

// Derive calculates the Lorenz attractor derivatives.
func (l Lorenz) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{l.sigma * (s[1] - s[0]), s[0]*(l.rho-s[2]) - s[1], s[0]*s[1] - l.beta*s[2]}
}
func (l Lorenz) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }
func (l Lorenz) Params() dynamo.Params {
	return dynamo.Params{"sigma": l.sigma, "rho": l.rho, "beta": l.beta}
}
func (l Lorenz) WithParam(n string, v float64) (dynamo.Field, error) {
	switch n {
	case "sigma":
		l.sigma = v
	case "rho":
		l.rho = v
	case "beta":
		l.beta = v
	default:
		return nil, unknownParam(l.Kind(), n)
	}
	return admit(l, n, v)
}

// FixedPoints returns the origin and, for ρ > 1, the pair C± at the centres
// of the two wings.
func (l Lorenz) FixedPoints() []dynamo.State {
	fps := []dynamo.State{{0, 0, 0}}
	if l.rho > 1 {
		c := math.Sqrt(l.beta * (l.rho - 1))
		fps = append(fps, dynamo.State{c, c, l.rho - 1}, dynamo.State{-c, -c, l.rho - 1})
	}
	return fps
}

func (l Lorenz) Jacobian(s dynamo.State) []float64 {
	x, y, z := s[0], s[1], s[2]
	return []float64{
		-l.sigma, l.sigma, 0,
		l.rho - z, -1, -x,
		y, x, -l.beta,
	}
}
