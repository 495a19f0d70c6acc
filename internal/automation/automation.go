package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/experiment"
	"github.com/san-kum/chaoslab/internal/logging"
	"github.com/san-kum/chaoslab/internal/storage"
)

// Scenario defines a scripted sequence of experiments.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single experiment in a scenario. It starts from the
// preset, or the defaults when none is named.
type ScenarioStep struct {
	Model  string             `yaml:"model"`
	Preset string             `yaml:"preset"`
	Params map[string]float64 `yaml:"params"`
	Steps  int                `yaml:"steps"`
	Seed   uint64             `yaml:"seed"`
	Scan   bool               `yaml:"scan"`
	Save   bool               `yaml:"save"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// Config resolves the experiment config for the step.
func (s ScenarioStep) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = s.Model
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Model, s.Preset); cfg == nil {
			return nil, fmt.Errorf("no preset %q for model %q", s.Preset, s.Model)
		}
	}
	for k, v := range s.Params {
		cfg.SetParam(k, v)
	}
	if s.Steps > 0 {
		cfg.Steps = s.Steps
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	return cfg, cfg.Validate()
}

// StepResult is the outcome of one scenario step. Exactly one of Result and
// Records is set.
type StepResult struct {
	Step    int
	Model   string
	RunID   string
	Result  *experiment.Result
	Records []analysis.Record
}

// RunScenario executes all steps in order and stops at the first failure.
// Steps marked save are persisted to st when it is non-nil.
func RunScenario(ctx context.Context, scenario *Scenario, reg *experiment.Registry, st *storage.Store, logger *slog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "model", step.Model)

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		exp, err := experiment.New(reg, cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		out := StepResult{Step: i + 1, Model: cfg.Model}
		if step.Scan {
			if out.Records, _, err = exp.Scan(); err != nil {
				return results, fmt.Errorf("step %d scan: %w", i+1, err)
			}
		} else if out.Result, err = exp.Run(ctx); err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		if step.Save && st != nil {
			if out.RunID, err = save(st, exp, out); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, out)
	}

	return results, nil
}

func save(st *storage.Store, exp *experiment.Experiment, out StepResult) (string, error) {
	if out.Records != nil {
		meta := storage.NewMetadata(storage.KindScan, exp.Config(), exp.Field(), nil)
		return st.SaveScan(meta, out.Records)
	}
	meta := storage.NewMetadata(storage.KindRun, exp.Config(), exp.Field(), out.Result.Metrics)
	return st.Save(meta, out.Result.Snapshots)
}

// ParameterSweep runs a flow or map once per value of one parameter. Unlike
// a bifurcation scan it keeps the whole ensemble and its metrics.
type ParameterSweep struct {
	Base   *config.Config
	Param  string
	Min    float64
	Max    float64
	Values int
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	Value   float64
	Final   dynamo.State
	Live    int
	Total   int
	Metrics map[string]float64
	Err     error
}

// Survival is the fraction of trajectories still live at the end.
func (r SweepResult) Survival() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Live) / float64(r.Total)
}

// RunSweep executes a parameter sweep. A value whose experiment cannot be
// built or run records the error and the sweep continues.
func RunSweep(ctx context.Context, sweep *ParameterSweep, reg *experiment.Registry, logger *slog.Logger) ([]SweepResult, error) {
	if sweep.Values < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 values, got %d", sweep.Values)
	}
	if sweep.Max <= sweep.Min {
		return nil, fmt.Errorf("sweep range [%g, %g] is empty", sweep.Min, sweep.Max)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	values := floats.Span(make([]float64, sweep.Values), sweep.Min, sweep.Max)
	results := make([]SweepResult, 0, len(values))

	for i, v := range values {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		cfg := sweep.Base.Clone()
		cfg.SetParam(sweep.Param, v)
		out := SweepResult{Value: v}

		exp, err := experiment.New(reg, cfg, logging.NewNop())
		if err == nil {
			var res *experiment.Result
			if res, err = exp.Run(ctx); err == nil {
				out.Live = res.Report.Live
				out.Total = len(res.Snapshots)
				out.Metrics = res.Metrics
				if len(res.Snapshots) > 0 {
					out.Final = res.Snapshots[0].Current
				}
			}
		}
		out.Err = err
		results = append(results, out)

		logger.Debug("sweep value", "param", sweep.Param, "value", v, "index", i+1, "of", len(values), "err", err)
	}

	return results, nil
}
