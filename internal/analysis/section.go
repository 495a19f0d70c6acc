package analysis

import (
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/sim"
)

const DefaultSectionCapacity = 500

// Section decides when a trajectory pierces a surface. Value maps a state
// to the scalar the section watches; Crossing reports whether the step from
// prev to next crossed it, and where along the step.
type Section interface {
	Value(x dynamo.State, t float64) float64
	Crossing(prev, next float64) (frac float64, ok bool)
}

// PhaseSection samples a driven system once per forcing period, when the
// phase ωt wraps through 2π.
type PhaseSection struct {
	Omega float64
}

// PhaseSectionFor builds a stroboscopic section from a driven field.
func PhaseSectionFor(d dynamo.Driven) PhaseSection {
	return PhaseSection{Omega: 2 * math.Pi / d.Period()}
}

func (p PhaseSection) Value(_ dynamo.State, t float64) float64 {
	ph := math.Mod(p.Omega*t, 2*math.Pi)
	if ph < 0 {
		ph += 2 * math.Pi
	}
	return ph
}

func (p PhaseSection) Crossing(prev, next float64) (float64, bool) {
	if prev <= next {
		return 0, false
	}
	span := next + 2*math.Pi - prev
	if span <= 0 {
		return 1, true
	}
	return (2*math.Pi - prev) / span, true
}

type Direction int

const (
	Rising Direction = iota
	Falling
	Both
)

func (d Direction) String() string {
	switch d {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	}
	return "both"
}

// ThresholdSection fires when component Index passes Level in the given
// direction. Guard, when set, must accept the interpolated crossing state.
type ThresholdSection struct {
	Index     int
	Level     float64
	Direction Direction
	Guard     func(x dynamo.State) bool
}

func (s ThresholdSection) Value(x dynamo.State, _ float64) float64 { return x[s.Index] }

func (s ThresholdSection) Crossing(prev, next float64) (float64, bool) {
	rising := prev < s.Level && next >= s.Level
	falling := prev > s.Level && next <= s.Level
	switch s.Direction {
	case Rising:
		if !rising {
			return 0, false
		}
	case Falling:
		if !falling {
			return 0, false
		}
	default:
		if !rising && !falling {
			return 0, false
		}
	}
	frac := (s.Level - prev) / (next - prev)
	if math.IsNaN(frac) || math.IsInf(frac, 0) {
		frac = 1
	}
	return frac, true
}

// Crossing is one recorded section point.
type Crossing struct {
	Time  float64      `json:"t"`
	State dynamo.State `json:"state"`
	Step  int          `json:"step"`
}

// SectionSampler accumulates the crossings of one trajectory. Attached as an
// ensemble observer it is bound to the ensemble's current generation, and
// its crossings are dropped whenever that generation ends.
type SectionSampler struct {
	section      Section
	index        int
	discardTime  float64
	discardSteps int

	ens       *sim.Ensemble
	gen       uint64
	steps     int
	crossings *sim.Ring[Crossing]
	onCross   func(Crossing)
}

type SectionOption func(*SectionSampler)

// ForTrajectory selects which ensemble member OnStep listens to.
func ForTrajectory(i int) SectionOption { return func(s *SectionSampler) { s.index = i } }

// DiscardTime ignores crossings before time t.
func DiscardTime(t float64) SectionOption { return func(s *SectionSampler) { s.discardTime = t } }

// DiscardSteps ignores crossings during the first n observed steps.
func DiscardSteps(n int) SectionOption { return func(s *SectionSampler) { s.discardSteps = n } }

func SectionCapacity(n int) SectionOption {
	return func(s *SectionSampler) { s.crossings = sim.NewRing[Crossing](n) }
}

// OnCrossing registers a callback run after each recorded crossing.
func OnCrossing(fn func(Crossing)) SectionOption {
	return func(s *SectionSampler) { s.onCross = fn }
}

func NewSectionSampler(section Section, opts ...SectionOption) *SectionSampler {
	s := &SectionSampler{section: section}
	for _, opt := range opts {
		opt(s)
	}
	if s.crossings == nil {
		s.crossings = sim.NewRing[Crossing](DefaultSectionCapacity)
	}
	return s
}

// Observe records state at time t when the watched value went from prev to
// next across the section. It reports whether a crossing was recorded.
func (s *SectionSampler) Observe(prev, next float64, state dynamo.State, t float64) bool {
	s.steps++
	if _, ok := s.section.Crossing(prev, next); !ok || !s.guard(state) {
		return false
	}
	return s.record(state.Clone(), t)
}

// Bind implements sim.Binder. Crossings recorded against any other ensemble
// or generation are discarded.
func (s *SectionSampler) Bind(e *sim.Ensemble) {
	if s.ens == e && s.gen == e.Generation() {
		return
	}
	s.ens, s.gen = e, e.Generation()
	s.Reset()
}

// Generation returns the ensemble generation the crossings belong to.
func (s *SectionSampler) Generation() uint64 { return s.gen }

// OnStep implements sim.Observer. The crossing time and state are linearly
// interpolated inside the step.
func (s *SectionSampler) OnStep(index int, prev, next dynamo.State, tPrev, tNext float64) {
	if index != s.index {
		return
	}
	if s.ens != nil && s.ens.Generation() != s.gen {
		s.Bind(s.ens)
	}
	s.steps++
	frac, ok := s.section.Crossing(s.section.Value(prev, tPrev), s.section.Value(next, tNext))
	if !ok {
		return
	}
	x := prev.Add(next.Sub(prev).Scale(frac))
	if !s.guard(x) {
		return
	}
	s.record(x, tPrev+frac*(tNext-tPrev))
}

func (s *SectionSampler) guard(x dynamo.State) bool {
	g, ok := s.section.(ThresholdSection)
	return !ok || g.Guard == nil || g.Guard(x)
}

func (s *SectionSampler) record(x dynamo.State, t float64) bool {
	if s.steps <= s.discardSteps || t < s.discardTime {
		return false
	}
	c := Crossing{Time: t, State: x, Step: s.steps}
	s.crossings.Append(c)
	if s.onCross != nil {
		s.onCross(c)
	}
	return true
}

func (s *SectionSampler) Len() int { return s.crossings.Len() }

// Crossings returns recorded crossings, oldest first. States are copies.
func (s *SectionSampler) Crossings() []Crossing {
	out := s.crossings.Snapshot()
	for i := range out {
		out[i].State = out[i].State.Clone()
	}
	return out
}

func (s *SectionSampler) Reset() {
	s.steps = 0
	s.crossings.Reset()
}
