package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/logging"
	"github.com/san-kum/chaoslab/internal/metrics"
	"github.com/san-kum/chaoslab/internal/sim"
)

// Experiment binds a validated config to a concrete field and integrator.
type Experiment struct {
	cfg    *config.Config
	reg    *Registry
	field  dynamo.Field
	x0     dynamo.State
	integ  sim.IntegratorFactory
	logger *slog.Logger
}

func New(reg *Registry, cfg *config.Config, logger *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	field, x0, err := reg.GetField(cfg.Model, cfg.Params)
	if err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Experiment{
		cfg:    cfg,
		reg:    reg,
		field:  field,
		x0:     x0,
		integ:  integ,
		logger: logger.With("model", cfg.Model),
	}, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }
func (e *Experiment) Field() dynamo.Field    { return e.field }

// InitialStates returns the explicit states from the config, or Count draws
// around the model's default state.
func (e *Experiment) InitialStates() ([]dynamo.State, error) {
	ec := e.cfg.Ensemble
	if len(ec.Initial) > 0 {
		out := make([]dynamo.State, len(ec.Initial))
		for i, x := range ec.Initial {
			if len(x) != e.field.Dim() {
				return nil, fmt.Errorf("initial state %d: %w: %d values for %s (dim %d)",
					i, dynamo.ErrDimensionMismatch, len(x), e.cfg.Model, e.field.Dim())
			}
			out[i] = dynamo.State(x).Clone()
		}
		return out, nil
	}
	return sim.Cloud(sim.GaussianSeeder(e.cfg.Seed, e.x0, ec.Spread), ec.Count), nil
}

// Seeder draws replacement states for diverged trajectories. Its stream is
// distinct from the one used for initial states.
func (e *Experiment) Seeder() sim.Seeder {
	return sim.GaussianSeeder(e.cfg.Seed+1, e.x0, e.cfg.Ensemble.Spread)
}

func (e *Experiment) Options(extra ...sim.Option) []sim.Option {
	opts := []sim.Option{
		sim.WithCapacity(e.cfg.Capacity),
		sim.WithIntegrator(e.integ),
		sim.WithParallel(e.cfg.Ensemble.Parallel),
		sim.WithLogger(e.logger),
	}
	if e.cfg.Ensemble.Reseed {
		opts = append(opts, sim.WithSeeder(e.Seeder()))
	}
	return append(opts, extra...)
}

func (e *Experiment) BuildEnsemble(field dynamo.Field, extra ...sim.Option) (*sim.Ensemble, error) {
	initial, err := e.InitialStates()
	if err != nil {
		return nil, err
	}
	return sim.NewEnsemble(field, initial, e.Options(extra...)...)
}

func (e *Experiment) Builder(extra ...sim.Option) sim.Builder {
	return func(f dynamo.Field) (*sim.Ensemble, error) { return e.BuildEnsemble(f, extra...) }
}

func (e *Experiment) NewSession(extra ...sim.Option) (*sim.Session, error) {
	return sim.NewSession(e.field, e.Builder(extra...), e.cfg.Dt, e.cfg.SubSteps)
}

// PairEnsemble builds a two-member ensemble: the first initial state and a
// copy displaced by the configured perturbation along component 0.
func (e *Experiment) PairEnsemble(extra ...sim.Option) (*sim.Ensemble, error) {
	initial, err := e.InitialStates()
	if err != nil {
		return nil, err
	}
	pair := sim.Perturbed(initial[0], 0, e.cfg.Divergence.Perturbation, 1)
	return sim.NewEnsemble(e.field, pair, e.Options(extra...)...)
}

func (e *Experiment) Tracker(ens *sim.Ensemble, i, j int) (*analysis.Tracker, error) {
	dc := e.cfg.Divergence
	var opts []analysis.TrackerOption
	if dc.Renormalize {
		opts = append(opts, analysis.WithRenormalize(dc.Perturbation, dc.Threshold))
	}
	// Steps only bounds batch runs; live sessions keep Capacity samples.
	capacity := max(e.cfg.Steps+1, e.cfg.Capacity, dc.Window, 2)
	return analysis.NewTracker(ens, i, j, capacity, opts...)
}

// SectionSampler builds the sampler described by the config's section.
func (e *Experiment) SectionSampler(opts ...analysis.SectionOption) (*analysis.SectionSampler, error) {
	sc := e.cfg.Section
	if sc == nil {
		return nil, fmt.Errorf("%s: no section configured", e.cfg.Model)
	}

	var section analysis.Section
	switch sc.Kind {
	case "phase":
		d, ok := e.field.(dynamo.Driven)
		if !ok {
			return nil, fmt.Errorf("%s has no forcing phase for a stroboscopic section", e.cfg.Model)
		}
		section = analysis.PhaseSectionFor(d)
	case "threshold":
		if sc.Index >= e.field.Dim() {
			return nil, fmt.Errorf("section index %d: %w", sc.Index, dynamo.ErrDimensionMismatch)
		}
		dir, err := sc.ParseDirection()
		if err != nil {
			return nil, err
		}
		section = analysis.ThresholdSection{Index: sc.Index, Level: sc.Level, Direction: dir}
	default:
		return nil, fmt.Errorf("unknown section kind %q", sc.Kind)
	}

	all := []analysis.SectionOption{
		analysis.DiscardTime(sc.DiscardTime),
		analysis.DiscardSteps(sc.DiscardSteps),
	}
	if sc.Capacity > 0 {
		all = append(all, analysis.SectionCapacity(sc.Capacity))
	}
	return analysis.NewSectionSampler(section, append(all, opts...)...), nil
}

// Result is the outcome of a batch run.
type Result struct {
	Config    *config.Config
	Snapshots []sim.Snapshot
	Report    sim.TickReport
	Metrics   map[string]float64
	Crossings []analysis.Crossing
	Elapsed   time.Duration
}

// Run steps a fresh session for the configured number of frames with the
// default metrics attached, plus the section sampler when one is configured.
func (e *Experiment) Run(ctx context.Context, extra ...sim.Option) (*Result, error) {
	ms := e.reg.DefaultMetrics(e.field)
	opts := make([]sim.Option, 0, len(ms)+len(extra)+1)
	for _, m := range ms {
		opts = append(opts, sim.WithObserver(m))
	}

	var sampler *analysis.SectionSampler
	if e.cfg.Section != nil {
		var err error
		if sampler, err = e.SectionSampler(); err != nil {
			return nil, err
		}
		opts = append(opts, sim.WithObserver(sampler))
	}

	sess, err := e.NewSession(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := sess.Run(ctx, e.cfg.Steps)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", e.cfg.Model, err)
	}
	elapsed := time.Since(start)

	res := &Result{
		Config:    e.cfg,
		Snapshots: sess.Ensemble().Snapshots(),
		Report:    report,
		Metrics:   metrics.Summary(ms...),
		Elapsed:   elapsed,
	}
	res.Metrics["live"] = float64(report.Live)
	res.Metrics["divergences"] = float64(len(report.Divergences))
	if sampler != nil {
		res.Crossings = sampler.Crossings()
		res.Metrics["crossings"] = float64(len(res.Crossings))
	}

	e.logger.Info("run complete",
		"frames", sess.Frames(),
		"steps", report.Steps,
		"live", report.Live,
		"divergences", len(report.Divergences),
		"elapsed", elapsed,
	)
	return res, nil
}

// Scan runs the configured bifurcation sweep. The field must be a map.
func (e *Experiment) Scan() ([]analysis.Record, time.Duration, error) {
	if e.cfg.Scan == nil {
		return nil, 0, fmt.Errorf("%s: no scan configured", e.cfg.Model)
	}
	m, ok := e.field.(dynamo.Map)
	if !ok {
		return nil, 0, fmt.Errorf("%s is not a discrete map; only maps can be scanned", e.cfg.Model)
	}

	sc := *e.cfg.Scan
	if len(sc.X0) == 0 {
		sc.X0 = e.x0
	}

	start := time.Now()
	recs, err := analysis.Scan(m, sc)
	if err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)

	escaped := 0
	for _, r := range recs {
		if r.Escaped {
			escaped++
		}
	}
	e.logger.Info("scan complete", "param", sc.Param, "points", len(recs), "escaped", escaped, "elapsed", elapsed)
	return recs, elapsed, nil
}
