package dynamo

import (
	"fmt"
	"math"
	"sort"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Distance is the Euclidean distance between two states of equal arity.
func (s State) Distance(other State) (float64, error) {
	if len(s) != len(other) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(s), len(other))
	}
	sum := 0.0
	for i := range s {
		d := s[i] - other[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Params is a read-only snapshot of a field's named parameters.
type Params map[string]float64

func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (p Params) String() string {
	out := ""
	for i, k := range p.Names() {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%.6g", k, p[k])
	}
	return out
}

type Kind int

const (
	KindVanDerPol Kind = iota
	KindLorenz
	KindDuffing
	KindLogisticMap
	KindBetatronMap
	KindRossler
	KindHenon
	KindHopf
	KindPendulum
)

var kindNames = map[Kind]string{
	KindVanDerPol:   "vanderpol",
	KindLorenz:      "lorenz",
	KindDuffing:     "duffing",
	KindLogisticMap: "logistic",
	KindBetatronMap: "betatron",
	KindRossler:     "rossler",
	KindHenon:       "henon",
	KindHopf:        "hopf",
	KindPendulum:    "pendulum",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field is the closed set of vector fields. Every variant embeds either
// Continuous or Discrete, which carry the seal; nothing outside those two
// families can satisfy the interface.
type Field interface {
	Kind() Kind
	Dim() int
	Params() Params
	isDiscrete() bool
}

// Continuous marks a field whose evaluation is a time derivative.
type Continuous struct{}

func (Continuous) isDiscrete() bool { return false }

// Discrete marks a field whose evaluation is the next state.
type Discrete struct{}

func (Discrete) isDiscrete() bool { return true }

type Flow interface {
	Field
	Derive(x State, t float64) State
}

type Map interface {
	Field
	Next(x State) (State, error)
}

// Configurable fields produce a modified copy; the receiver is never changed.
type Configurable interface {
	WithParam(name string, value float64) (Field, error)
}

type Hamiltonian interface {
	Energy(x State) float64
}

// Linearizable fields know their fixed points in closed form. For a flow
// these are zeros of the field, for a map the states it sends to
// themselves. Jacobian returns the Dim×Dim matrix of partial derivatives
// at x in row-major order.
type Linearizable interface {
	FixedPoints() []State
	Jacobian(x State) []float64
}

// Driven fields carry an external periodic forcing.
type Driven interface {
	Phase(t float64) float64
	Period() float64
}

// Bounded fields define a region outside of which a state counts as lost.
type Bounded interface {
	InBounds(x State) bool
}

// IsDiscrete reports whether f is a map rather than a flow.
func IsDiscrete(f Field) bool { return f.isDiscrete() }

// Evaluate returns the derivative of a flow or the image of a map at x.
func Evaluate(f Field, x State, t float64) (State, error) {
	if len(x) != f.Dim() {
		return nil, fmt.Errorf("%w: %s wants %d, got %d", ErrDimensionMismatch, f.Kind(), f.Dim(), len(x))
	}
	switch v := f.(type) {
	case Flow:
		return v.Derive(x, t), nil
	case Map:
		return v.Next(x)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, f.Kind())
	}
}

// WithParams applies every override in order, stopping at the first error.
func WithParams(f Field, overrides map[string]float64) (Field, error) {
	if len(overrides) == 0 {
		return f, nil
	}
	c, ok := f.(Configurable)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configurable", ErrUnknownParam, f.Kind())
	}
	names := Params(overrides).Names()
	out := f
	for _, name := range names {
		next, err := c.WithParam(name, overrides[name])
		if err != nil {
			return nil, err
		}
		out = next
		c, ok = next.(Configurable)
		if !ok {
			break
		}
	}
	return out, nil
}

type Integrator interface {
	Step(f Field, x State, t, dt float64) (State, error)
}
