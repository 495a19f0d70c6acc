package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/sim"
)

// DivergenceSample is one point of the divergence curve. With
// renormalization enabled Distance is the raw separation after the last
// rescale, while Log10 is the accumulated separation on a log scale.
type DivergenceSample struct {
	Time     float64 `json:"t"`
	Distance float64 `json:"d"`
	Log10    float64 `json:"log10_d"`
}

// Tracker follows the separation of two trajectories of one ensemble.
type Tracker struct {
	ens  *sim.Ensemble
	i, j int
	gen  uint64

	samples *sim.Ring[DivergenceSample]

	renorm    bool
	d0        float64
	threshold float64
	offset    float64
}

type TrackerOption func(*Tracker)

// WithRenormalize pulls trajectory j back to distance d0 from i whenever the
// separation exceeds threshold, so the curve keeps growing past saturation.
func WithRenormalize(d0, threshold float64) TrackerOption {
	return func(t *Tracker) {
		t.renorm = true
		t.d0 = d0
		t.threshold = threshold
	}
}

func NewTracker(ens *sim.Ensemble, i, j, capacity int, opts ...TrackerOption) (*Tracker, error) {
	if i == j {
		return nil, fmt.Errorf("tracker needs two distinct trajectories, got %d twice", i)
	}
	if _, err := ens.State(i); err != nil {
		return nil, err
	}
	if _, err := ens.State(j); err != nil {
		return nil, err
	}
	if capacity < 2 {
		return nil, fmt.Errorf("tracker capacity must be at least 2, got %d", capacity)
	}

	t := &Tracker{
		ens:     ens,
		i:       i,
		j:       j,
		gen:     ens.Generation(),
		samples: sim.NewRing[DivergenceSample](capacity),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.renorm && (t.d0 <= 0 || t.threshold <= t.d0) {
		return nil, fmt.Errorf("renormalization needs 0 < d0 < threshold, got d0=%g threshold=%g", t.d0, t.threshold)
	}
	return t, nil
}

func (t *Tracker) Pair() (int, int) { return t.i, t.j }
func (t *Tracker) Len() int         { return t.samples.Len() }

// Samples returns the recorded curve, oldest first.
func (t *Tracker) Samples() []DivergenceSample { return t.samples.Snapshot() }

// Sample records the current separation. Once the ensemble has been reset
// or its membership changed, the tracker drops its history and keeps
// returning dynamo.ErrStaleEnsemble.
func (t *Tracker) Sample() (DivergenceSample, error) {
	if t.ens.Generation() != t.gen {
		t.samples.Reset()
		return DivergenceSample{}, dynamo.ErrStaleEnsemble
	}
	if t.ens.Divergent(t.i) || t.ens.Divergent(t.j) {
		return DivergenceSample{}, fmt.Errorf("%w: tracked pair (%d, %d) is frozen", dynamo.ErrDivergent, t.i, t.j)
	}

	xi, err := t.ens.State(t.i)
	if err != nil {
		return DivergenceSample{}, err
	}
	xj, err := t.ens.State(t.j)
	if err != nil {
		return DivergenceSample{}, err
	}
	d, err := xi.Distance(xj)
	if err != nil {
		return DivergenceSample{}, err
	}

	s := DivergenceSample{Time: t.ens.Time(), Distance: d, Log10: math.Inf(-1)}
	if d > 0 {
		s.Log10 = math.Log10(d) + t.offset
	}
	t.samples.Append(s)

	if t.renorm && d > t.threshold {
		if _, err := t.ens.Rescale(t.i, t.j, t.d0); err != nil {
			return s, err
		}
		t.offset += math.Log10(d / t.d0)
	}
	return s, nil
}

// EstimateLyapunov fits log10(d) against t over the last window samples
// and returns the slope in natural-log units. Samples with zero distance
// are left out of the fit.
func (t *Tracker) EstimateLyapunov(window int) (float64, error) {
	if window < 2 {
		return 0, fmt.Errorf("lyapunov window must be at least 2, got %d", window)
	}
	n := t.samples.Len()
	if n < window {
		return 0, fmt.Errorf("%w: have %d of %d", dynamo.ErrInsufficientSamples, n, window)
	}

	ts := make([]float64, 0, window)
	ls := make([]float64, 0, window)
	for k := n - window; k < n; k++ {
		s := t.samples.At(k)
		if math.IsInf(s.Log10, 0) || math.IsNaN(s.Log10) {
			continue
		}
		ts = append(ts, s.Time)
		ls = append(ls, s.Log10)
	}
	if len(ts) < 2 || ts[len(ts)-1] == ts[0] {
		return 0, fmt.Errorf("%w: no usable spread in window", dynamo.ErrInsufficientSamples)
	}

	_, slope := stat.LinearRegression(ts, ls, nil, false)
	return slope * math.Ln10, nil
}
