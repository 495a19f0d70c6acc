package optim

import (
	"context"
	"testing"

	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/experiment"
)

func pendulumBuilder(t *testing.T) func(map[string]float64) (*experiment.Experiment, error) {
	t.Helper()
	reg := experiment.NewRegistry()
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := config.GetPreset("pendulum", "small")
		cfg.Steps = 200
		for k, v := range params {
			cfg.SetParam(k, v)
		}
		return experiment.New(reg, cfg, nil)
	}
}

func TestGridSearchMinimize(t *testing.T) {
	g := NewGridSearch([]string{"damping", "g_over_l"}, [][]float64{{0.5, 0, 0.2}, {1, 2}})
	best, err := g.Search(context.Background(), pendulumBuilder(t), "energy_drift")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if best.Evaluated != 6 || best.Failed != 0 {
		t.Errorf("evaluated %d, failed %d", best.Evaluated, best.Failed)
	}
	if best.Params["damping"] != 0 {
		t.Errorf("best damping = %v, want 0", best.Params["damping"])
	}
	if best.Value > 1e-6 {
		t.Errorf("undamped energy drift = %v", best.Value)
	}
}

func TestGridSearchMaximize(t *testing.T) {
	g := NewGridSearch([]string{"damping"}, [][]float64{Linspace(0, 0.5, 3)}).Maximize()
	best, err := g.Search(context.Background(), pendulumBuilder(t), "energy_drift")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if best.Params["damping"] != 0.5 {
		t.Errorf("best damping = %v, want 0.5", best.Params["damping"])
	}
}

func TestGridSearchFailures(t *testing.T) {
	g := NewGridSearch([]string{"damping"}, [][]float64{{-1, 0}})
	best, err := g.Search(context.Background(), pendulumBuilder(t), "energy_drift")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if best.Failed != 1 || best.Evaluated != 1 {
		t.Errorf("evaluated %d, failed %d", best.Evaluated, best.Failed)
	}

	if _, err := NewGridSearch([]string{"a", "b"}, [][]float64{{1}}).Search(context.Background(), pendulumBuilder(t), "x"); err == nil {
		t.Error("expected error for mismatched ranges")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewGridSearch([]string{"damping"}, [][]float64{{0}}).Search(ctx, pendulumBuilder(t), "energy_drift"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestLinspace(t *testing.T) {
	v := Linspace(0, 1, 5)
	if len(v) != 5 || v[0] != 0 || v[4] != 1 || v[2] != 0.5 {
		t.Errorf("Linspace = %v", v)
	}
	if got := Linspace(3, 4, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("Linspace n=1 = %v", got)
	}
}
