package viz

import (
	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/sim"
)

// Portrait projects every trajectory onto components xi and yi and draws
// them into a w by h cell canvas sharing one set of bounds. Discrete
// trajectories are drawn as dots, flows as paths.
func Portrait(snaps []sim.Snapshot, xi, yi, w, h int, dots bool) (*Canvas, analysis.Bounds, error) {
	paths := make([][]analysis.Point, 0, len(snaps))
	var all []analysis.Point
	for _, s := range snaps {
		pts, err := analysis.Project(s.History, xi, yi)
		if err != nil {
			return nil, analysis.Bounds{}, err
		}
		paths = append(paths, pts)
		all = append(all, pts...)
	}

	c := NewCanvas(w, h)
	v := Viewport{Canvas: c, Bounds: analysis.BoundsOf(all, 0.05)}
	for _, pts := range paths {
		if dots {
			v.Scatter(pts)
		} else {
			v.Path(pts)
		}
	}
	return c, v.Bounds, nil
}

// Bifurcation scatters scan samples over the parameter axis. Records with
// too few samples to describe an attractor are skipped.
func Bifurcation(recs []analysis.Record, w, h int) (*Canvas, analysis.Bounds) {
	var pts []analysis.Point
	for _, r := range recs {
		if !r.Valid() {
			continue
		}
		for _, v := range r.Samples {
			pts = append(pts, analysis.Point{X: r.Param, Y: v})
		}
	}

	c := NewCanvas(w, h)
	v := Viewport{Canvas: c, Bounds: analysis.BoundsOf(pts, 0.02)}
	v.Scatter(pts)
	return c, v.Bounds
}
