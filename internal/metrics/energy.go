package metrics

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// EnergyDrift tracks the largest relative energy change of any trajectory
// since its first observed step. Fields without an energy report zero.
type EnergyDrift struct {
	h        dynamo.Hamiltonian
	initial  map[int]float64
	maxDrift float64
}

func NewEnergyDrift(f dynamo.Field) *EnergyDrift {
	h, _ := f.(dynamo.Hamiltonian)
	return &EnergyDrift{h: h, initial: make(map[int]float64)}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) OnStep(index int, prev, next dynamo.State, _, _ float64) {
	if e.h == nil {
		return
	}
	e0, ok := e.initial[index]
	if !ok {
		e0 = e.h.Energy(prev)
		e.initial[index] = e0
	}
	if e0 == 0 {
		return
	}
	drift := math.Abs(e.h.Energy(next)-e0) / math.Abs(e0)
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = make(map[int]float64)
	e.maxDrift = 0
}

// Energy is the mean energy over all observed steps.
type Energy struct {
	h       dynamo.Hamiltonian
	total   float64
	samples int
}

func NewEnergy(f dynamo.Field) *Energy {
	h, _ := f.(dynamo.Hamiltonian)
	return &Energy{h: h}
}

func (e *Energy) Name() string { return "energy" }

func (e *Energy) OnStep(_ int, _, next dynamo.State, _, _ float64) {
	if e.h == nil {
		return
	}
	e.total += e.h.Energy(next)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}
