package sim

import (
	"errors"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

var (
	ErrNoTrajectory      = errors.New("sim: trajectory index out of range")
	ErrInvalidTransition = errors.New("sim: invalid session transition")
)

// Observer is notified once per trajectory per committed step. By the time
// OnStep runs every trajectory in the ensemble has been advanced.
type Observer interface {
	OnStep(index int, prev, next dynamo.State, tPrev, tNext float64)
}

type ObserverFunc func(index int, prev, next dynamo.State, tPrev, tNext float64)

func (f ObserverFunc) OnStep(index int, prev, next dynamo.State, tPrev, tNext float64) {
	f(index, prev, next, tPrev, tNext)
}

// Binder is implemented by observers whose state belongs to one ensemble
// generation. Bind runs when the ensemble is built and again each time its
// Generation advances.
type Binder interface {
	Bind(e *Ensemble)
}

// IntegratorFactory builds a private integrator for one trajectory.
type IntegratorFactory func() dynamo.Integrator

// Divergence records one trajectory that failed a step.
type Divergence struct {
	Index    int
	Step     int
	Time     float64
	Reseeded bool
	Err      error
}

// TickReport summarizes one or more ticks.
type TickReport struct {
	Steps       int
	Time        float64
	Live        int
	Divergences []Divergence
}

func (r *TickReport) merge(o TickReport) {
	r.Steps += o.Steps
	r.Time = o.Time
	r.Live = o.Live
	r.Divergences = append(r.Divergences, o.Divergences...)
}

// Snapshot is a read-only copy of one trajectory.
type Snapshot struct {
	Index     int            `json:"index"`
	Current   dynamo.State   `json:"current"`
	History   []dynamo.State `json:"history"`
	Steps     int            `json:"steps"`
	Divergent bool           `json:"divergent"`
	Reseeds   int            `json:"reseeds"`
}
