package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/integrators"
	"github.com/san-kum/chaoslab/internal/logging"
)

const DefaultCapacity = 2000

// Ensemble steps a set of trajectories in lockstep against one field.
//
// The field is fixed for the life of the ensemble. To change parameters,
// build a new ensemble; history recorded under the old parameters goes with
// the old one. Trajectory indices are stable between calls to Reset and
// RemoveTrajectory, both of which advance Generation.
type Ensemble struct {
	field      dynamo.Field
	trajs      []*trajectory
	time       float64
	generation uint64

	capacity      int
	newIntegrator IntegratorFactory
	seeder        Seeder
	parallel      bool
	logger        *slog.Logger
	observers     []Observer

	next []dynamo.State
	errs []error
}

type Option func(*Ensemble)

func WithCapacity(n int) Option { return func(e *Ensemble) { e.capacity = n } }

func WithIntegrator(f IntegratorFactory) Option {
	return func(e *Ensemble) { e.newIntegrator = f }
}

// WithSeeder re-seeds diverged trajectories instead of freezing them.
func WithSeeder(s Seeder) Option { return func(e *Ensemble) { e.seeder = s } }

// WithParallel computes each sub-step across goroutines. Results are still
// committed together before observers run.
func WithParallel(on bool) Option { return func(e *Ensemble) { e.parallel = on } }

func WithLogger(l *slog.Logger) Option { return func(e *Ensemble) { e.logger = l } }

func WithObserver(o Observer) Option {
	return func(e *Ensemble) { e.observers = append(e.observers, o) }
}

func NewEnsemble(field dynamo.Field, initial []dynamo.State, opts ...Option) (*Ensemble, error) {
	if field == nil {
		return nil, fmt.Errorf("%w: nil field", dynamo.ErrUnknownField)
	}
	e := &Ensemble{
		field:         field,
		capacity:      DefaultCapacity,
		newIntegrator: func() dynamo.Integrator { return integrators.NewRK4() },
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.capacity < 1 {
		return nil, fmt.Errorf("history capacity must be at least 1, got %d", e.capacity)
	}
	if err := e.load(initial); err != nil {
		return nil, err
	}
	e.bindObservers()
	return e, nil
}

func (e *Ensemble) validate(x dynamo.State) error {
	if len(x) != e.field.Dim() {
		return fmt.Errorf("%w: got %d components, %s needs %d",
			dynamo.ErrDimensionMismatch, len(x), e.field.Kind(), e.field.Dim())
	}
	if !x.IsValid() {
		return dynamo.ErrInvalidState
	}
	return nil
}

func (e *Ensemble) load(initial []dynamo.State) error {
	trajs := make([]*trajectory, 0, len(initial))
	for i, x0 := range initial {
		if err := e.validate(x0); err != nil {
			return fmt.Errorf("initial state %d: %w", i, err)
		}
		trajs = append(trajs, newTrajectory(x0, e.capacity, e.newIntegrator()))
	}
	e.trajs = trajs
	return nil
}

func (e *Ensemble) Field() dynamo.Field { return e.field }
func (e *Ensemble) Len() int            { return len(e.trajs) }
func (e *Ensemble) Time() float64       { return e.time }

// Generation changes whenever existing trajectory indices stop referring to
// the trajectories they used to.
func (e *Ensemble) Generation() uint64 { return e.generation }

// Live counts trajectories that are still being stepped.
func (e *Ensemble) Live() int {
	n := 0
	for _, t := range e.trajs {
		if !t.divergent {
			n++
		}
	}
	return n
}

// Tick advances every live trajectory by subSteps steps of size dt. Maps
// advance by one iteration per step regardless of dt.
func (e *Ensemble) Tick(dt float64, subSteps int) (TickReport, error) {
	if dt <= 0 {
		return TickReport{}, fmt.Errorf("dt must be positive, got %f", dt)
	}
	if subSteps < 1 {
		return TickReport{}, fmt.Errorf("subSteps must be at least 1, got %d", subSteps)
	}

	advance := dt
	if dynamo.IsDiscrete(e.field) {
		advance = 1
	}

	var report TickReport
	for s := 0; s < subSteps; s++ {
		report.Divergences = append(report.Divergences, e.step(dt, advance)...)
		report.Steps++
	}
	report.Time = e.time
	report.Live = e.Live()
	return report, nil
}

func (e *Ensemble) step(dt, advance float64) []Divergence {
	n := len(e.trajs)
	if cap(e.next) < n {
		e.next = make([]dynamo.State, n)
		e.errs = make([]error, n)
	}
	next, errs := e.next[:n], e.errs[:n]
	tPrev := e.time
	tNext := tPrev + advance

	compute := func(start, end int) {
		for i := start; i < end; i++ {
			t := e.trajs[i]
			if t.divergent {
				next[i], errs[i] = nil, nil
				continue
			}
			next[i], errs[i] = t.integ.Step(e.field, t.current, tPrev, dt)
		}
	}
	if e.parallel {
		dynamo.ParallelFor(n, 4, compute)
	} else {
		compute(0, n)
	}

	var divs []Divergence
	prev := make([]dynamo.State, n)
	for i, t := range e.trajs {
		if t.divergent {
			continue
		}
		if errs[i] != nil {
			divs = append(divs, e.diverge(i, t, tNext, errs[i]))
			continue
		}
		prev[i] = t.current
		t.commit(next[i])
	}
	e.time = tNext

	for i := range e.trajs {
		if prev[i] == nil {
			continue
		}
		for _, o := range e.observers {
			o.OnStep(i, prev[i], e.trajs[i].current, tPrev, tNext)
		}
	}
	for i := range next {
		next[i], errs[i] = nil, nil
	}
	return divs
}

func (e *Ensemble) diverge(i int, t *trajectory, at float64, err error) Divergence {
	var simErr *dynamo.SimulationError
	if errors.As(err, &simErr) {
		simErr.Index = i
		simErr.Step = t.steps + 1
	} else {
		err = &dynamo.SimulationError{Index: i, Step: t.steps + 1, Time: at, State: t.current.Clone(), Wrapped: err}
	}

	d := Divergence{Index: i, Step: t.steps + 1, Time: at, Err: err}
	t.divergent = true
	if e.seeder != nil {
		x0 := e.seeder(i)
		if verr := e.validate(x0); verr == nil {
			t.reseed(x0)
			d.Reseeded = true
		} else {
			e.logger.Warn("seeder produced unusable state", "index", i, "error", verr)
		}
	}
	e.logger.Debug("trajectory diverged",
		"index", i,
		"step", d.Step,
		"t", at,
		"reseeded", d.Reseeded,
		"error", err,
	)
	return d
}

// Reset replaces every trajectory and rewinds time to zero.
func (e *Ensemble) Reset(initial []dynamo.State) error {
	if err := e.load(initial); err != nil {
		return err
	}
	e.time = 0
	e.generation++
	e.bindObservers()
	return nil
}

// retire marks the ensemble as replaced so that trackers bound to it fail.
func (e *Ensemble) retire() { e.generation++ }

// AddTrajectory appends a trajectory starting at x0 at the current time and
// returns its index.
func (e *Ensemble) AddTrajectory(x0 dynamo.State) (int, error) {
	if err := e.validate(x0); err != nil {
		return -1, err
	}
	e.trajs = append(e.trajs, newTrajectory(x0, e.capacity, e.newIntegrator()))
	return len(e.trajs) - 1, nil
}

// RemoveTrajectory deletes trajectory i, keeping the others in order.
func (e *Ensemble) RemoveTrajectory(i int) error {
	if i < 0 || i >= len(e.trajs) {
		return fmt.Errorf("%w: %d of %d", ErrNoTrajectory, i, len(e.trajs))
	}
	e.trajs = append(e.trajs[:i], e.trajs[i+1:]...)
	e.generation++
	e.bindObservers()
	return nil
}

func (e *Ensemble) bindObservers() {
	for _, o := range e.observers {
		if b, ok := o.(Binder); ok {
			b.Bind(e)
		}
	}
}

// State returns a copy of trajectory i's current state.
func (e *Ensemble) State(i int) (dynamo.State, error) {
	if i < 0 || i >= len(e.trajs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoTrajectory, i, len(e.trajs))
	}
	return e.trajs[i].current.Clone(), nil
}

func (e *Ensemble) Divergent(i int) bool {
	return i >= 0 && i < len(e.trajs) && e.trajs[i].divergent
}

func (e *Ensemble) Snapshot(i int) (Snapshot, error) {
	if i < 0 || i >= len(e.trajs) {
		return Snapshot{}, fmt.Errorf("%w: %d of %d", ErrNoTrajectory, i, len(e.trajs))
	}
	return e.trajs[i].snapshot(i), nil
}

func (e *Ensemble) Snapshots() []Snapshot {
	out := make([]Snapshot, len(e.trajs))
	for i, t := range e.trajs {
		out[i] = t.snapshot(i)
	}
	return out
}

// Rescale moves trajectory j along the line from trajectory i so that the
// two are d apart, and returns the separation before rescaling. The rescaled
// state is appended to j's history.
func (e *Ensemble) Rescale(i, j int, d float64) (float64, error) {
	xi, err := e.State(i)
	if err != nil {
		return 0, err
	}
	xj, err := e.State(j)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("rescale distance must be positive, got %g", d)
	}
	sep, err := xi.Distance(xj)
	if err != nil {
		return 0, err
	}
	if sep == 0 || e.trajs[i].divergent || e.trajs[j].divergent {
		return sep, nil
	}
	moved := xi.Add(xj.Sub(xi).Scale(d / sep))
	t := e.trajs[j]
	t.current = moved
	t.history.Append(moved)
	return sep, nil
}
