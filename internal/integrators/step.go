package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// stepMap applies a discrete map once. Time advances by one iteration.
func stepMap(m dynamo.Map, x dynamo.State, t float64) (dynamo.State, error) {
	next, err := m.Next(x)
	if err != nil {
		return nil, &dynamo.SimulationError{Time: t + 1, State: x.Clone(), Wrapped: err}
	}
	return check(m, next, t+1)
}

// check rejects non-finite results and states that left a bounded field.
func check(f dynamo.Field, x dynamo.State, t float64) (dynamo.State, error) {
	if !x.IsValid() {
		return nil, &dynamo.SimulationError{Time: t, State: x, Wrapped: dynamo.ErrDivergent}
	}
	if b, ok := f.(dynamo.Bounded); ok && !b.InBounds(x) {
		return nil, &dynamo.SimulationError{
			Time:    t,
			State:   x,
			Wrapped: fmt.Errorf("%w: left %s aperture", dynamo.ErrDivergent, f.Kind()),
		}
	}
	return x, nil
}

var registry = map[string]func() dynamo.Integrator{
	"rk4":   func() dynamo.Integrator { return NewRK4() },
	"euler": func() dynamo.Integrator { return NewEuler() },
}

// New returns a fresh integrator by name.
func New(name string) (dynamo.Integrator, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return ctor(), nil
}

// Names lists the registered integrators.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
