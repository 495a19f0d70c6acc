package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/sim"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)

	if c.Grid[0][0] != blank|0x01 {
		t.Errorf("cell 0 = %U", c.Grid[0][0])
	}
	if c.Grid[0][1] != blank|0x80 {
		t.Errorf("cell 1 = %U", c.Grid[0][1])
	}
	if !c.IsSet(3, 3) || c.IsSet(1, 1) {
		t.Error("IsSet disagrees with Set")
	}

	c.Clear()
	if c.String() != "⠀⠀\n" {
		t.Errorf("Clear left %q", c.String())
	}
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Line(0, 0, 7, 7)
	for i := 0; i < 8; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("diagonal dot %d not set", i)
		}
	}
	if c.IsSet(7, 0) {
		t.Error("unexpected dot off the line")
	}
}

func TestViewport(t *testing.T) {
	c := NewCanvas(10, 5)
	v := Viewport{Canvas: c, Bounds: analysis.Bounds{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1}}

	x, y, ok := v.ToDots(analysis.Point{X: -1, Y: 1})
	if !ok || x != 0 || y != 0 {
		t.Errorf("top-left maps to (%d, %d)", x, y)
	}
	x, y, _ = v.ToDots(analysis.Point{X: 1, Y: -1})
	if x != 19 || y != 19 {
		t.Errorf("bottom-right maps to (%d, %d)", x, y)
	}
	if _, _, ok := v.ToDots(analysis.Point{X: math.NaN()}); ok {
		t.Error("NaN point accepted")
	}

	v.Path([]analysis.Point{{X: -1, Y: 0}, {X: math.Inf(1), Y: 0}, {X: 1, Y: 0}})
	if c.IsSet(10, 10) {
		t.Error("path bridged a non-finite point")
	}
}

func TestPortrait(t *testing.T) {
	snaps := []sim.Snapshot{
		{History: []dynamo.State{{0, 0}, {1, 1}}},
		{History: []dynamo.State{{-1, 2}}},
	}
	c, b, err := Portrait(snaps, 0, 1, 20, 10, false)
	if err != nil {
		t.Fatalf("Portrait failed: %v", err)
	}
	if b.MinX > -1 || b.MaxY < 2 {
		t.Errorf("bounds %+v do not cover every trajectory", b)
	}
	if strings.Count(c.String(), "\n") != 10 {
		t.Error("unexpected canvas height")
	}

	if _, _, err := Portrait(snaps, 0, 2, 20, 10, false); err == nil {
		t.Error("expected error for out-of-range component")
	}
}

func TestBifurcationSkipsInvalidRecords(t *testing.T) {
	recs := []analysis.Record{
		{Param: 1, Samples: []float64{0.5, 0.5}, MinSamples: 16},
		{Param: 3, Samples: make([]float64, 40), Escaped: true, MinSamples: 16},
	}
	for i := range recs[1].Samples {
		recs[1].Samples[i] = 0.2 + 0.01*float64(i)
	}

	_, b := Bifurcation(recs, 40, 10)
	if b.MinX > 3 || b.MaxX < 3 {
		t.Errorf("escaped record with enough samples not drawn: bounds %+v", b)
	}
	if b.MinX <= 1 {
		t.Errorf("record below MinSamples drawn: bounds %+v", b)
	}
}

func TestSparkline(t *testing.T) {
	got := Sparkline([]float64{0, 1, math.Inf(-1), 2}, 6)
	if got != "▁▄ █──" {
		t.Errorf("Sparkline = %q", got)
	}
	if Sparkline([]float64{1, 2, 3}, 2) != "▁█" {
		t.Errorf("Sparkline did not keep the tail: %q", Sparkline([]float64{1, 2, 3}, 2))
	}
}

func TestThemes(t *testing.T) {
	if _, ok := GetTheme("ocean"); !ok {
		t.Error("ocean theme missing")
	}
	if th, ok := GetTheme("nope"); ok || th.Name != Themes[0].Name {
		t.Error("unknown theme should fall back to the first")
	}
	if NextTheme(Themes[len(Themes)-1]).Name != Themes[0].Name {
		t.Error("NextTheme does not wrap")
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "0.0000"},
		{1.5, "1.5000"},
		{1e-6, "1.000e-06"},
		{math.Inf(-1), "-inf"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
