package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Point is a state projected onto two of its components.
type Point struct{ X, Y float64 }

// Project picks components xi and yi from every state.
func Project(states []dynamo.State, xi, yi int) ([]Point, error) {
	pts := make([]Point, 0, len(states))
	for k, s := range states {
		if xi < 0 || yi < 0 || xi >= len(s) || yi >= len(s) {
			return nil, fmt.Errorf("%w: state %d has %d components, want indices %d and %d",
				dynamo.ErrDimensionMismatch, k, len(s), xi, yi)
		}
		pts = append(pts, Point{X: s[xi], Y: s[yi]})
	}
	return pts, nil
}

// Bounds is an axis-aligned box around a point set.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// BoundsOf returns the box around pts grown by pad times its size on each
// side. Degenerate axes get a unit extent.
func BoundsOf(pts []Point, pad float64) Bounds {
	if len(pts) == 0 {
		return Bounds{-1, 1, -1, 1}
	}
	b := Bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, p := range pts {
		b.MinX = math.Min(b.MinX, p.X)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}

	rx, ry := b.MaxX-b.MinX, b.MaxY-b.MinY
	if rx == 0 {
		rx = 1
		b.MinX -= 0.5
		b.MaxX += 0.5
	}
	if ry == 0 {
		ry = 1
		b.MinY -= 0.5
		b.MaxY += 0.5
	}
	b.MinX -= rx * pad
	b.MaxX += rx * pad
	b.MinY -= ry * pad
	b.MaxY += ry * pad
	return b
}

// Union grows b to cover o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		MinX: math.Min(b.MinX, o.MinX),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}
