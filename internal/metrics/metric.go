package metrics

import "github.com/san-kum/chaoslab/internal/sim"

// Metric is a scalar summary fed by ensemble steps.
type Metric interface {
	sim.Observer
	Name() string
	Value() float64
	Reset()
}

// Summary collects the current value of each metric by name.
func Summary(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
