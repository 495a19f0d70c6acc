package sim

import "github.com/san-kum/chaoslab/internal/dynamo"

// trajectory is owned by exactly one Ensemble. Committed states are never
// mutated, so history entries can be handed out after cloning.
type trajectory struct {
	current   dynamo.State
	history   *Ring[dynamo.State]
	integ     dynamo.Integrator
	steps     int
	divergent bool
	reseeds   int
}

func newTrajectory(x0 dynamo.State, capacity int, integ dynamo.Integrator) *trajectory {
	t := &trajectory{
		current: x0.Clone(),
		history: NewRing[dynamo.State](capacity),
		integ:   integ,
	}
	t.history.Append(t.current)
	return t
}

func (t *trajectory) commit(x dynamo.State) {
	t.current = x
	t.history.Append(x)
	t.steps++
}

// reseed restarts the trajectory from x0. The step counter keeps counting.
func (t *trajectory) reseed(x0 dynamo.State) {
	t.current = x0.Clone()
	t.history.Reset()
	t.history.Append(t.current)
	t.divergent = false
	t.reseeds++
}

func (t *trajectory) snapshot(index int) Snapshot {
	hist := t.history.Snapshot()
	for i, s := range hist {
		hist[i] = s.Clone()
	}
	return Snapshot{
		Index:     index,
		Current:   t.current.Clone(),
		History:   hist,
		Steps:     t.steps,
		Divergent: t.divergent,
		Reseeds:   t.reseeds,
	}
}
