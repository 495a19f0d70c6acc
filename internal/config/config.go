package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/chaoslab/internal/analysis"
)

const (
	DefaultDt         = 0.01
	DefaultSubSteps   = 1
	DefaultSteps      = 2000
	DefaultCapacity   = 2000
	DefaultCount      = 1
	DefaultWindow     = 100
	DefaultPerturb    = 1e-4
	DefaultIntegrator = "rk4"
)

// Config describes one experiment: which field to build, how to seed the
// ensemble, how to step it, and what to measure.
type Config struct {
	Model      string               `json:"model" yaml:"model"`
	Integrator string               `json:"integrator" yaml:"integrator"`
	Params     map[string]float64   `json:"params,omitempty" yaml:"params,omitempty"`
	Dt         float64              `json:"dt" yaml:"dt"`
	SubSteps   int                  `json:"substeps" yaml:"substeps"`
	Steps      int                  `json:"steps" yaml:"steps"`
	Capacity   int                  `json:"capacity" yaml:"capacity"`
	Seed       uint64               `json:"seed" yaml:"seed"`
	Ensemble   EnsembleConfig       `json:"ensemble" yaml:"ensemble"`
	Divergence DivergenceConfig     `json:"divergence" yaml:"divergence"`
	Section    *SectionConfig       `json:"section,omitempty" yaml:"section,omitempty"`
	Scan       *analysis.ScanConfig `json:"scan,omitempty" yaml:"scan,omitempty"`
}

type EnsembleConfig struct {
	// Initial lists explicit starting states. When empty, Count states are
	// drawn around the model's default state with standard deviation Spread.
	Initial  [][]float64 `json:"initial,omitempty" yaml:"initial,omitempty"`
	Count    int         `json:"count" yaml:"count"`
	Spread   float64     `json:"spread" yaml:"spread"`
	Reseed   bool        `json:"reseed" yaml:"reseed"`
	Parallel bool        `json:"parallel" yaml:"parallel"`
}

type DivergenceConfig struct {
	Perturbation float64 `json:"perturbation" yaml:"perturbation"`
	Window       int     `json:"window" yaml:"window"`
	Renormalize  bool    `json:"renormalize" yaml:"renormalize"`
	Threshold    float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

type SectionConfig struct {
	Kind         string  `json:"kind" yaml:"kind"`
	Index        int     `json:"index" yaml:"index"`
	Level        float64 `json:"level" yaml:"level"`
	Direction    string  `json:"direction" yaml:"direction"`
	DiscardTime  float64 `json:"discard_time" yaml:"discard_time"`
	DiscardSteps int     `json:"discard_steps" yaml:"discard_steps"`
	Capacity     int     `json:"capacity" yaml:"capacity"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "lorenz",
		Integrator: DefaultIntegrator,
		Dt:         DefaultDt,
		SubSteps:   DefaultSubSteps,
		Steps:      DefaultSteps,
		Capacity:   DefaultCapacity,
		Seed:       1,
		Ensemble:   EnsembleConfig{Count: DefaultCount},
		Divergence: DivergenceConfig{Perturbation: DefaultPerturb, Window: DefaultWindow},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadInto overlays the file at path onto cfg. Keys absent from the file keep
// their current values. The result is not validated.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Params = maps.Clone(c.Params)
	if c.Ensemble.Initial != nil {
		out.Ensemble.Initial = make([][]float64, len(c.Ensemble.Initial))
		for i, s := range c.Ensemble.Initial {
			out.Ensemble.Initial[i] = slices.Clone(s)
		}
	}
	if c.Section != nil {
		s := *c.Section
		out.Section = &s
	}
	if c.Scan != nil {
		s := *c.Scan
		s.X0 = s.X0.Clone()
		out.Scan = &s
	}
	return &out
}

// SetParam records a parameter override.
func (c *Config) SetParam(name string, v float64) {
	if c.Params == nil {
		c.Params = make(map[string]float64)
	}
	c.Params[name] = v
}

func (c *Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if c.Dt <= 0 {
		errs = append(errs, fmt.Errorf("dt must be positive, got %g", c.Dt))
	}
	if c.SubSteps < 1 {
		errs = append(errs, fmt.Errorf("substeps must be at least 1, got %d", c.SubSteps))
	}
	if c.Steps < 0 {
		errs = append(errs, fmt.Errorf("steps must not be negative, got %d", c.Steps))
	}
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("capacity must be at least 1, got %d", c.Capacity))
	}
	if len(c.Ensemble.Initial) == 0 && c.Ensemble.Count < 1 {
		errs = append(errs, fmt.Errorf("ensemble needs initial states or a positive count"))
	}
	if c.Ensemble.Spread < 0 {
		errs = append(errs, fmt.Errorf("ensemble spread must not be negative, got %g", c.Ensemble.Spread))
	}
	if c.Divergence.Window < 0 || c.Divergence.Perturbation < 0 {
		errs = append(errs, errors.New("divergence window and perturbation must not be negative"))
	}
	if c.Divergence.Renormalize && c.Divergence.Threshold <= c.Divergence.Perturbation {
		errs = append(errs, fmt.Errorf("renormalization threshold %g must exceed perturbation %g",
			c.Divergence.Threshold, c.Divergence.Perturbation))
	}
	if c.Section != nil {
		if err := c.Section.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("section: %w", err))
		}
	}
	if c.Scan != nil {
		if err := c.Scan.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("scan: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *SectionConfig) Validate() error {
	switch s.Kind {
	case "phase", "threshold":
	default:
		return fmt.Errorf("kind must be phase or threshold, got %q", s.Kind)
	}
	if _, err := s.ParseDirection(); err != nil {
		return err
	}
	if s.Index < 0 || s.DiscardSteps < 0 || s.Capacity < 0 {
		return errors.New("index, discard_steps and capacity must not be negative")
	}
	return nil
}

// ParseDirection maps the direction name onto analysis.Direction. An empty
// name means rising.
func (s *SectionConfig) ParseDirection() (analysis.Direction, error) {
	switch s.Direction {
	case "", "rising":
		return analysis.Rising, nil
	case "falling":
		return analysis.Falling, nil
	case "both":
		return analysis.Both, nil
	}
	return analysis.Rising, fmt.Errorf("unknown direction %q", s.Direction)
}
