package optim

import (
	"context"
	"fmt"
	"maps"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/chaoslab/internal/experiment"
)

// GridSearch evaluates every combination of parameter values and keeps the
// one with the best run metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	maximize   bool
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Maximize flips the search to prefer larger metric values.
func (g *GridSearch) Maximize() *GridSearch {
	g.maximize = true
	return g
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// Best is the outcome of a search.
type Best struct {
	Params    map[string]float64
	Value     float64
	Evaluated int
	Failed    int
}

// Search runs the experiment built for each grid point and compares the
// named metric of its result. Points whose experiment fails are counted and
// skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (Best, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return Best{}, fmt.Errorf("grid needs one range per parameter, got %d names and %d ranges",
			len(g.paramNames), len(g.ranges))
	}

	best := Best{Value: math.Inf(1)}
	if g.maximize {
		best.Value = math.Inf(-1)
	}

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, metricName, &best); err != nil {
		return best, err
	}
	if best.Params == nil {
		return best, fmt.Errorf("no grid point produced metric %q (%d failed)", metricName, best.Failed)
	}
	return best, nil
}

func (g *GridSearch) better(v, than float64) bool {
	if g.maximize {
		return v > than
	}
	return v < than
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	metricName string,
	best *Best,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		exp, err := buildExperiment(current)
		if err != nil {
			best.Failed++
			return nil
		}

		result, err := exp.Run(ctx)
		if err != nil {
			best.Failed++
			return nil
		}
		best.Evaluated++

		val, ok := result.Metrics[metricName]
		if !ok || math.IsNaN(val) {
			return nil
		}
		if best.Params == nil || g.better(val, best.Value) {
			best.Value = val
			best.Params = maps.Clone(current)
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := maps.Clone(current)
		next[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, next, buildExperiment, metricName, best); err != nil {
			return err
		}
	}
	return nil
}
