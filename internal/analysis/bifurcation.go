package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

const (
	// DefaultMinSamples is how many post-transient samples a record needs
	// before it describes an attractor.
	DefaultMinSamples = 16

	periodTolerance = 1e-6
	maxPeriod       = 64
)

// ScanConfig describes a parameter sweep of a discrete map.
type ScanConfig struct {
	Param      string       `json:"param" yaml:"param"`
	Min        float64      `json:"min" yaml:"min"`
	Max        float64      `json:"max" yaml:"max"`
	Resolution int          `json:"resolution" yaml:"resolution"`
	Transient  int          `json:"transient" yaml:"transient"`
	Samples    int          `json:"samples" yaml:"samples"`
	X0         dynamo.State `json:"x0" yaml:"x0"`
	Component  int          `json:"component" yaml:"component"`
	MinSamples int          `json:"min_samples,omitempty" yaml:"min_samples,omitempty"`
	Parallel   bool         `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

func (c ScanConfig) Validate() error {
	var errs []error
	if c.Param == "" {
		errs = append(errs, errors.New("param is required"))
	}
	if c.Resolution < 1 {
		errs = append(errs, fmt.Errorf("resolution must be at least 1, got %d", c.Resolution))
	}
	if c.Samples < 1 {
		errs = append(errs, fmt.Errorf("samples must be at least 1, got %d", c.Samples))
	}
	if c.Transient < 0 {
		errs = append(errs, fmt.Errorf("transient must not be negative, got %d", c.Transient))
	}
	if c.Min > c.Max || math.IsNaN(c.Min) || math.IsNaN(c.Max) {
		errs = append(errs, fmt.Errorf("range [%g, %g] is empty", c.Min, c.Max))
	}
	if c.MinSamples < 0 {
		errs = append(errs, fmt.Errorf("min_samples must not be negative, got %d", c.MinSamples))
	}
	return errors.Join(errs...)
}

// Grid returns the parameter values the scan visits.
func (c ScanConfig) Grid() []float64 {
	if c.Resolution == 1 {
		return []float64{c.Min}
	}
	return floats.Span(make([]float64, c.Resolution), c.Min, c.Max)
}

// Record holds the post-transient samples for one parameter value.
type Record struct {
	Param   float64   `json:"param"`
	Samples []float64 `json:"samples"`
	Escaped bool      `json:"escaped"`
	Period  int       `json:"period"`

	// MinSamples is the threshold Valid checks against.
	MinSamples int `json:"min_samples"`
}

// Valid reports whether enough samples survived to describe an attractor.
func (r Record) Valid() bool { return len(r.Samples) > 0 && len(r.Samples) >= r.MinSamples }

func (r Record) Mean() float64 {
	if len(r.Samples) == 0 {
		return math.NaN()
	}
	return stat.Mean(r.Samples, nil)
}

// Spread is the sample standard deviation, zero on a fixed point.
func (r Record) Spread() float64 {
	if len(r.Samples) < 2 {
		return 0
	}
	return stat.StdDev(r.Samples, nil)
}

// Scan sweeps cfg.Param over the grid. For each value the map is iterated
// cfg.Transient times from cfg.X0 and then cfg.Samples times, recording
// component cfg.Component. A value whose orbit leaves the map's domain or
// turns non-finite stops early and is marked Escaped; that is not an error.
// Scan is deterministic.
func Scan(m dynamo.Map, cfg ScanConfig) ([]Record, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}
	c, ok := m.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not configurable", dynamo.ErrUnknownParam, m.Kind())
	}
	if len(cfg.X0) != m.Dim() {
		return nil, fmt.Errorf("%w: x0 has %d components, %s needs %d",
			dynamo.ErrDimensionMismatch, len(cfg.X0), m.Kind(), m.Dim())
	}
	if cfg.Component < 0 || cfg.Component >= m.Dim() {
		return nil, fmt.Errorf("component %d out of range for %s", cfg.Component, m.Kind())
	}
	if cfg.MinSamples == 0 {
		cfg.MinSamples = DefaultMinSamples
	}

	grid := cfg.Grid()
	fields := make([]dynamo.Map, len(grid))
	for k, p := range grid {
		f, err := c.WithParam(cfg.Param, p)
		if err != nil {
			return nil, err
		}
		fields[k] = f.(dynamo.Map)
	}

	records := make([]Record, len(grid))
	work := func(start, end int) {
		for k := start; k < end; k++ {
			records[k] = scanOne(fields[k], grid[k], cfg)
		}
	}
	if cfg.Parallel {
		dynamo.ParallelFor(len(grid), 4, work)
	} else {
		work(0, len(grid))
	}
	return records, nil
}

func scanOne(m dynamo.Map, p float64, cfg ScanConfig) Record {
	rec := Record{Param: p, Period: -1, MinSamples: cfg.MinSamples}
	bounded, _ := m.(dynamo.Bounded)

	x := cfg.X0.Clone()
	advance := func() bool {
		next, err := m.Next(x)
		if err != nil || !next.IsValid() || (bounded != nil && !bounded.InBounds(next)) {
			return false
		}
		x = next
		return true
	}

	for i := 0; i < cfg.Transient; i++ {
		if !advance() {
			rec.Escaped = true
			return rec
		}
	}

	rec.Samples = make([]float64, 0, cfg.Samples)
	for i := 0; i < cfg.Samples; i++ {
		if !advance() {
			rec.Escaped = true
			break
		}
		rec.Samples = append(rec.Samples, x[cfg.Component])
	}
	if !rec.Escaped {
		rec.Period = DetectPeriod(rec.Samples, periodTolerance, maxPeriod)
	}
	return rec
}

// DetectPeriod returns the smallest power-of-two period, up to max, with
// which samples repeat within tol, or -1 if there is none.
func DetectPeriod(samples []float64, tol float64, max int) int {
	if lim := len(samples) / 2; max > lim {
		max = lim
	}
	for period := 1; period <= max; period *= 2 {
		periodic := true
		for i := 0; i+period < len(samples); i++ {
			if math.Abs(samples[i]-samples[i+period]) > tol {
				periodic = false
				break
			}
		}
		if periodic {
			return period
		}
	}
	return -1
}
