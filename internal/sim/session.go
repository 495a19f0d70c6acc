package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

type Phase int

const (
	Idle Phase = iota
	Running
	Paused
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Builder creates a fresh ensemble for a field.
type Builder func(field dynamo.Field) (*Ensemble, error)

// Session drives an ensemble through Idle -> Running -> Paused -> Running
// and back to Idle on Reset. It is not safe for concurrent use.
type Session struct {
	field    dynamo.Field
	build    Builder
	ens      *Ensemble
	phase    Phase
	dt       float64
	subSteps int
	frames   int
}

func NewSession(field dynamo.Field, build Builder, dt float64, subSteps int) (*Session, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %f", dt)
	}
	if subSteps < 1 {
		return nil, fmt.Errorf("subSteps must be at least 1, got %d", subSteps)
	}
	s := &Session{field: field, build: build, dt: dt, subSteps: subSteps}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) rebuild() error {
	ens, err := s.build(s.field)
	if err != nil {
		return fmt.Errorf("build ensemble: %w", err)
	}
	if s.ens != nil {
		s.ens.retire()
	}
	s.ens = ens
	s.frames = 0
	return nil
}

func (s *Session) Phase() Phase        { return s.phase }
func (s *Session) Ensemble() *Ensemble { return s.ens }
func (s *Session) Field() dynamo.Field { return s.field }
func (s *Session) Frames() int         { return s.frames }
func (s *Session) Speed() int          { return s.subSteps }
func (s *Session) Dt() float64         { return s.dt }

func (s *Session) transition(from, to Phase) error {
	if s.phase != from {
		return fmt.Errorf("%w: %s -> %s while %s", ErrInvalidTransition, from, to, s.phase)
	}
	s.phase = to
	return nil
}

func (s *Session) Start() error  { return s.transition(Idle, Running) }
func (s *Session) Pause() error  { return s.transition(Running, Paused) }
func (s *Session) Resume() error { return s.transition(Paused, Running) }

// Reset discards the ensemble and returns to Idle with a fresh one.
func (s *Session) Reset() error {
	if err := s.rebuild(); err != nil {
		return err
	}
	s.phase = Idle
	return nil
}

// SetField swaps in a new field. History recorded under the previous field
// is discarded with its ensemble; a running session keeps running.
func (s *Session) SetField(f dynamo.Field) error {
	prev := s.field
	wasRunning := s.phase == Running
	s.field = f
	if err := s.Reset(); err != nil {
		s.field = prev
		return err
	}
	if wasRunning {
		return s.Start()
	}
	return nil
}

func (s *Session) SetSpeed(subSteps int) error {
	if subSteps < 1 {
		return fmt.Errorf("subSteps must be at least 1, got %d", subSteps)
	}
	s.subSteps = subSteps
	return nil
}

// Frame advances one display frame. Outside Running it does nothing.
func (s *Session) Frame() (TickReport, error) {
	if s.phase != Running {
		return TickReport{Time: s.ens.Time(), Live: s.ens.Live()}, nil
	}
	r, err := s.ens.Tick(s.dt, s.subSteps)
	if err != nil {
		return r, err
	}
	s.frames++
	return r, nil
}

// Run advances up to frames frames, starting the session if it is idle.
// It stops early when ctx is done and returns what it completed.
func (s *Session) Run(ctx context.Context, frames int) (TickReport, error) {
	if s.phase == Idle {
		if err := s.Start(); err != nil {
			return TickReport{}, err
		}
	}
	if s.phase != Running {
		return TickReport{}, fmt.Errorf("%w: run while %s", ErrInvalidTransition, s.phase)
	}

	var total TickReport
	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		r, err := s.Frame()
		if err != nil {
			return total, err
		}
		total.merge(r)
	}
	total.Time = s.ens.Time()
	total.Live = s.ens.Live()
	return total, nil
}
