package config

import (
	"maps"
	"slices"

	"github.com/san-kum/chaoslab/internal/analysis"
)

var Presets = map[string]map[string]*Config{
	"vanderpol": {
		"cycle": {
			Model: "vanderpol", Integrator: "rk4", Dt: 0.01, SubSteps: 5, Steps: 2000, Capacity: 2000,
			Params:   map[string]float64{"mu": 1},
			Ensemble: EnsembleConfig{Initial: [][]float64{{0.1, 0}, {3, 0}, {-2, 2}}},
		},
		"relaxation": {
			Model: "vanderpol", Integrator: "rk4", Dt: 0.005, SubSteps: 10, Steps: 3000, Capacity: 3000,
			Params:   map[string]float64{"mu": 5},
			Ensemble: EnsembleConfig{Count: 1},
		},
	},
	"lorenz": {
		"butterfly": {
			Model: "lorenz", Integrator: "rk4", Dt: 0.01, SubSteps: 1, Steps: 3000, Capacity: 3000,
			Ensemble:   EnsembleConfig{Count: 1},
			Divergence: DivergenceConfig{Perturbation: 1e-8, Window: 400},
		},
		"steady": {
			Model: "lorenz", Integrator: "rk4", Dt: 0.01, SubSteps: 1, Steps: 2000, Capacity: 2000,
			Params:   map[string]float64{"rho": 14},
			Ensemble: EnsembleConfig{Count: 4, Spread: 2},
		},
	},
	"duffing": {
		"strobe": {
			Model: "duffing", Integrator: "rk4", Dt: 0.01, SubSteps: 10, Steps: 20000, Capacity: 2000,
			Ensemble: EnsembleConfig{Count: 1},
			Section:  &SectionConfig{Kind: "phase", DiscardTime: 100, Capacity: 2000},
		},
		"periodic": {
			Model: "duffing", Integrator: "rk4", Dt: 0.01, SubSteps: 10, Steps: 5000, Capacity: 2000,
			Params:   map[string]float64{"F": 0.2},
			Ensemble: EnsembleConfig{Count: 1},
			Section:  &SectionConfig{Kind: "phase", DiscardTime: 100, Capacity: 500},
		},
	},
	"logistic": {
		"chaos": {
			Model: "logistic", Integrator: "rk4", Dt: 1, SubSteps: 1, Steps: 500, Capacity: 500,
			Params:   map[string]float64{"r": 3.9},
			Ensemble: EnsembleConfig{Initial: [][]float64{{0.2}, {0.2000001}}},
		},
		"bifurcation": {
			Model: "logistic", Integrator: "rk4", Dt: 1, SubSteps: 1, Steps: 0, Capacity: 100,
			Ensemble: EnsembleConfig{Count: 1},
			Scan: &analysis.ScanConfig{
				Param: "r", Min: 2.5, Max: 4, Resolution: 600,
				Transient: 500, Samples: 200, X0: []float64{0.5}, Parallel: true,
			},
		},
		"escape": {
			Model: "logistic", Integrator: "rk4", Dt: 1, SubSteps: 1, Steps: 50, Capacity: 50,
			Params:   map[string]float64{"r": 4.5},
			Ensemble: EnsembleConfig{Count: 8, Spread: 0.1},
		},
	},
	"betatron": {
		"beam": {
			Model: "betatron", Integrator: "rk4", Dt: 1, SubSteps: 1, Steps: 1000, Capacity: 500,
			Ensemble: EnsembleConfig{Count: 200, Spread: 0.05, Reseed: true, Parallel: true},
		},
		"octupole": {
			Model: "betatron", Integrator: "rk4", Dt: 1, SubSteps: 1, Steps: 1000, Capacity: 500,
			Params:   map[string]float64{"k3": 1, "octupole": 1},
			Ensemble: EnsembleConfig{Count: 100, Spread: 0.05, Parallel: true},
		},
		"ogy": {
			Model: "betatron", Integrator: "rk4", Dt: 1, SubSteps: 1, Steps: 1000, Capacity: 500,
			Params:   map[string]float64{"ogy_gain": 0.3, "capture_radius": 0.05},
			Ensemble: EnsembleConfig{Count: 50, Spread: 0.02},
		},
	},
	"rossler": {
		"funnel": {
			Model: "rossler", Integrator: "rk4", Dt: 0.01, SubSteps: 5, Steps: 4000, Capacity: 4000,
			Params:   map[string]float64{"c": 9},
			Ensemble: EnsembleConfig{Count: 1},
			Section:  &SectionConfig{Kind: "threshold", Index: 0, Level: 0, Direction: "rising", Capacity: 1000},
		},
	},
	"henon": {
		"classic": {
			Model: "henon", Integrator: "rk4", Dt: 1, SubSteps: 1, Steps: 5000, Capacity: 5000,
			Ensemble: EnsembleConfig{Count: 1},
		},
	},
	"hopf": {
		"supercritical": {
			Model: "hopf", Integrator: "rk4", Dt: 0.01, SubSteps: 2, Steps: 2000, Capacity: 2000,
			Params:   map[string]float64{"mu": 0.5},
			Ensemble: EnsembleConfig{Initial: [][]float64{{0.05, 0}, {1.5, 0}}},
		},
		"damped": {
			Model: "hopf", Integrator: "rk4", Dt: 0.01, SubSteps: 2, Steps: 2000, Capacity: 2000,
			Params:   map[string]float64{"mu": -0.2},
			Ensemble: EnsembleConfig{Initial: [][]float64{{1, 0}}},
		},
	},
	"pendulum": {
		"small": {
			Model: "pendulum", Integrator: "rk4", Dt: 0.01, SubSteps: 1, Steps: 2000, Capacity: 2000,
			Ensemble: EnsembleConfig{Initial: [][]float64{{0.2, 0}}},
		},
		"large": {
			Model: "pendulum", Integrator: "rk4", Dt: 0.01, SubSteps: 1, Steps: 2000, Capacity: 2000,
			Ensemble: EnsembleConfig{Initial: [][]float64{{2.5, 0}}},
		},
		"spinning": {
			Model: "pendulum", Integrator: "rk4", Dt: 0.01, SubSteps: 1, Steps: 3000, Capacity: 3000,
			Ensemble: EnsembleConfig{Initial: [][]float64{{0.1, 8}}},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil if it does not exist.
// Fields the preset leaves unset are filled from DefaultConfig.
func GetPreset(model, name string) *Config {
	presets, ok := Presets[model]
	if !ok {
		return nil
	}
	p, ok := presets[name]
	if !ok {
		return nil
	}
	cfg := p.Clone()
	def := DefaultConfig()
	if cfg.Divergence.Window == 0 {
		cfg.Divergence.Window = def.Divergence.Window
	}
	if cfg.Divergence.Perturbation == 0 {
		cfg.Divergence.Perturbation = def.Divergence.Perturbation
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	return cfg
}

func ListPresets(model string) []string {
	presets, ok := Presets[model]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(presets))
}

// Models lists every model that has at least one preset.
func Models() []string {
	return slices.Sorted(maps.Keys(Presets))
}
