package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// MaxLogisticR is the largest growth rate accepted. Values above 4 let the
// orbit leave [0, 1], which is the point of the domain-escape demo.
const MaxLogisticR = 4.5

// Logistic is the logistic map x' = r·x·(1-x) on [0, 1].
type Logistic struct {
	dynamo.Discrete
	r float64
}

func NewLogistic() Logistic { return Logistic{r: 3.7} }

func (l Logistic) Kind() dynamo.Kind { return dynamo.KindLogisticMap }
func (l Logistic) Dim() int          { return 1 }
func (l Logistic) R() float64        { return l.r }

func (l Logistic) Next(s dynamo.State) (dynamo.State, error) {
	x := s[0]
	if math.IsNaN(x) || x < 0 || x > 1 {
		return nil, fmt.Errorf("%w: logistic x=%g not in [0,1]", dynamo.ErrDomain, x)
	}
	return dynamo.State{l.r * x * (1 - x)}, nil
}

func (l Logistic) DefaultState() dynamo.State { return dynamo.State{0.2} }

// FixedPoint is the non-trivial fixed point 1 - 1/r, stable for 1 < r < 3.
func (l Logistic) FixedPoint() float64 { return 1 - 1/l.r }

// FixedPoints returns the origin and, for r > 1, the non-trivial point.
func (l Logistic) FixedPoints() []dynamo.State {
	fps := []dynamo.State{{0}}
	if l.r > 1 {
		fps = append(fps, dynamo.State{l.FixedPoint()})
	}
	return fps
}

func (l Logistic) Jacobian(s dynamo.State) []float64 {
	return []float64{l.r * (1 - 2*s[0])}
}

func (l Logistic) Params() dynamo.Params { return dynamo.Params{"r": l.r} }

func (l Logistic) WithParam(n string, v float64) (dynamo.Field, error) {
	if n != "r" {
		return nil, unknownParam(l.Kind(), n)
	}
	if v < 0 || v > MaxLogisticR || math.IsNaN(v) {
		return nil, outOfBounds(l.Kind(), n, v, "growth rate must lie in [0, 4.5]")
	}
	l.r = v
	return admit(l, n, v)
}
