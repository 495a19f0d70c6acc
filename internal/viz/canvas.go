package viz

import (
	"math"
	"strings"

	"github.com/san-kum/chaoslab/internal/analysis"
)

// Each cell is one braille glyph holding a 2x4 block of dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const blank = 0x2800

var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille cells addressed in dot coordinates, with the
// origin at the top left.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) cell(x, y int) (row, col int, bit rune, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, 0, false
	}
	return row, col, dotBits[y%4][x%2], true
}

// Set lights the dot at (x, y). Dots off the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if row, col, bit, ok := c.cell(x, y); ok {
		c.Grid[row][col] |= bit
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	row, col, bit, ok := c.cell(x, y)
	return ok && c.Grid[row][col]&bit != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// Line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) Lines() []string {
	out := make([]string, len(c.Grid))
	for i, row := range c.Grid {
		out[i] = string(row)
	}
	return out
}

func (c *Canvas) String() string {
	return strings.Join(c.Lines(), "\n") + "\n"
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport draws world coordinates onto a canvas, y pointing up.
type Viewport struct {
	Canvas *Canvas
	Bounds analysis.Bounds
}

// ToDots maps p to dot coordinates. ok is false for non-finite points.
func (v Viewport) ToDots(p analysis.Point) (x, y int, ok bool) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return 0, 0, false
	}
	w, h := v.Canvas.Dots()
	b := v.Bounds
	fx := (p.X - b.MinX) / (b.MaxX - b.MinX)
	fy := (p.Y - b.MinY) / (b.MaxY - b.MinY)
	x = int(math.Round(fx * float64(w-1)))
	y = int(math.Round((1 - fy) * float64(h-1)))
	return x, y, true
}

func (v Viewport) Plot(p analysis.Point) {
	if x, y, ok := v.ToDots(p); ok {
		v.Canvas.Set(x, y)
	}
}

func (v Viewport) Scatter(pts []analysis.Point) {
	for _, p := range pts {
		v.Plot(p)
	}
}

// Path joins consecutive points. A non-finite point breaks the path.
func (v Viewport) Path(pts []analysis.Point) {
	havePrev := false
	var px, py int
	for _, p := range pts {
		x, y, ok := v.ToDots(p)
		if !ok {
			havePrev = false
			continue
		}
		if havePrev {
			v.Canvas.Line(px, py, x, y)
		} else {
			v.Canvas.Set(x, y)
		}
		px, py, havePrev = x, y, true
	}
}
