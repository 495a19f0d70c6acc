package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

func unknownParam(k dynamo.Kind, name string) error {
	return fmt.Errorf("%w: %s has no parameter %q", dynamo.ErrUnknownParam, k, name)
}

func outOfBounds(k dynamo.Kind, name string, v float64, why string) error {
	return fmt.Errorf("%w: %s %s=%g (%s)", dynamo.ErrParameterBounds, k, name, v, why)
}

// admit returns f once the value just set is known to be finite.
func admit(f dynamo.Field, name string, v float64) (dynamo.Field, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, outOfBounds(f.Kind(), name, v, "must be finite")
	}
	return f, nil
}

// Model is a field that also knows a sensible starting state.
type Model interface {
	dynamo.Field
	DefaultState() dynamo.State
}

var (
	_ dynamo.Flow = VanDerPol{}
	_ dynamo.Flow = Lorenz{}
	_ dynamo.Flow = Duffing{}
	_ dynamo.Flow = Rossler{}
	_ dynamo.Flow = Hopf{}
	_ dynamo.Flow = Pendulum{}
	_ dynamo.Map  = Logistic{}
	_ dynamo.Map  = Betatron{}
	_ dynamo.Map  = Henon{}

	_ dynamo.Driven      = Duffing{}
	_ dynamo.Bounded     = Betatron{}
	_ dynamo.Hamiltonian = Pendulum{}
	_ dynamo.Hamiltonian = VanDerPol{}

	_ dynamo.Linearizable = VanDerPol{}
	_ dynamo.Linearizable = Lorenz{}
	_ dynamo.Linearizable = Rossler{}
	_ dynamo.Linearizable = Hopf{}
	_ dynamo.Linearizable = Pendulum{}
	_ dynamo.Linearizable = Logistic{}
	_ dynamo.Linearizable = Henon{}
)
