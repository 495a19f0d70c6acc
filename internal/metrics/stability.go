package metrics

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Stability is the fraction of steps whose state stayed inside a box of
// half-width threshold.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) OnStep(_ int, _, next dynamo.State, _, _ float64) {
	s.samples++
	for _, v := range next {
		if math.Abs(v) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
