package experiment

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/integrators"
	"github.com/san-kum/chaoslab/internal/metrics"
	"github.com/san-kum/chaoslab/internal/physics"
	"github.com/san-kum/chaoslab/internal/sim"
)

var ErrUnknownModel = errors.New("unknown model")

// stabilityBox is the half-width beyond which a state counts as unstable.
const stabilityBox = 1e3

type Registry struct {
	models map[string]func() physics.Model
}

func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]func() physics.Model)}

	r.models["vanderpol"] = func() physics.Model { return physics.NewVanDerPol() }
	r.models["lorenz"] = func() physics.Model { return physics.NewLorenz() }
	r.models["duffing"] = func() physics.Model { return physics.NewDuffing() }
	r.models["logistic"] = func() physics.Model { return physics.NewLogistic() }
	r.models["betatron"] = func() physics.Model { return physics.NewBetatron() }
	r.models["rossler"] = func() physics.Model { return physics.NewRossler() }
	r.models["henon"] = func() physics.Model { return physics.NewHenon() }
	r.models["hopf"] = func() physics.Model { return physics.NewHopf() }
	r.models["pendulum"] = func() physics.Model { return physics.NewPendulum() }

	return r
}

func (r *Registry) GetModel(name string) (physics.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return fn(), nil
}

// GetField builds the named model with params applied and returns it with
// the model's default starting state.
func (r *Registry) GetField(name string, params map[string]float64) (dynamo.Field, dynamo.State, error) {
	m, err := r.GetModel(name)
	if err != nil {
		return nil, nil, err
	}
	f, err := dynamo.WithParams(m, params)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return f, m.DefaultState(), nil
}

// GetIntegrator checks the name and returns a factory producing a fresh
// integrator per trajectory.
func (r *Registry) GetIntegrator(name string) (sim.IntegratorFactory, error) {
	if _, err := integrators.New(name); err != nil {
		return nil, err
	}
	return func() dynamo.Integrator {
		integ, _ := integrators.New(name)
		return integ
	}, nil
}

func (r *Registry) ListModels() []string {
	return slices.Sorted(maps.Keys(r.models))
}

// ModelInfo describes a model for listings.
type ModelInfo struct {
	Name         string        `json:"name"`
	Dim          int           `json:"dim"`
	Discrete     bool          `json:"discrete"`
	Params       dynamo.Params `json:"params"`
	DefaultState dynamo.State  `json:"default_state"`
	Presets      []string      `json:"presets,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	Equations    []string      `json:"equations,omitempty"`

	FixedPoints []analysis.FixedPoint `json:"fixed_points,omitempty"`
	// CycleRadius is the radius of the attracting limit cycle, when the
	// model has one in closed form.
	CycleRadius float64 `json:"cycle_radius,omitempty"`
}

func (r *Registry) Describe(name string) (ModelInfo, error) {
	m, err := r.GetModel(name)
	if err != nil {
		return ModelInfo{}, err
	}
	info := ModelInfo{
		Name:         name,
		Dim:          m.Dim(),
		Discrete:     dynamo.IsDiscrete(m),
		Params:       m.Params(),
		DefaultState: m.DefaultState(),
		Presets:      config.ListPresets(name),
		Summary:      docs[name].summary,
		Equations:    docs[name].equations,
	}
	if _, ok := m.(dynamo.Linearizable); ok {
		if info.FixedPoints, err = analysis.FixedPoints(m); err != nil {
			return ModelInfo{}, fmt.Errorf("describe %s: %w", name, err)
		}
	}
	if c, ok := m.(interface{ CycleRadius() float64 }); ok {
		info.CycleRadius = c.CycleRadius()
	}
	return info, nil
}

func (r *Registry) DefaultMetrics(f dynamo.Field) []metrics.Metric {
	ms := []metrics.Metric{metrics.NewStability(stabilityBox)}
	if _, ok := f.(dynamo.Hamiltonian); ok {
		ms = append(ms, metrics.NewEnergy(f), metrics.NewEnergyDrift(f))
	}
	return ms
}
