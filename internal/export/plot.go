package export

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/sim"
)

const (
	DefaultWidth  = 8.0
	DefaultHeight = 6.0
	pngDPI        = 150
)

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func newPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel

	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(13)
	p.Y.Label.TextStyle.Font.Size = vg.Points(13)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)
	p.X.Tick.Label.Font.Size = vg.Points(11)
	p.Y.Tick.Label.Font.Size = vg.Points(11)
	p.X.Tick.Marker = limitedTicker(8, "%.2g")
	p.Y.Tick.Marker = limitedTicker(8, "%.2g")
	p.Add(plotter.NewGrid())
	return p
}

func xys(pts []analysis.Point) plotter.XYs {
	out := make(plotter.XYs, 0, len(pts))
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			continue
		}
		out = append(out, plotter.XY{X: p.X, Y: p.Y})
	}
	return out
}

func scatter(pts plotter.XYs, i int, radius vg.Length) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	s.GlyphStyle.Color = plotutil.Color(i)
	s.GlyphStyle.Radius = radius
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	return s, nil
}

// PhasePortrait plots components xi and yi of every trajectory, one colour
// per trajectory. Maps are drawn as points, flows as lines.
func PhasePortrait(snaps []sim.Snapshot, xi, yi int, title string, dots bool) (*plot.Plot, error) {
	p := newPlot(title, fmt.Sprintf("x%d", xi), fmt.Sprintf("x%d", yi))
	for k, s := range snaps {
		proj, err := analysis.Project(s.History, xi, yi)
		if err != nil {
			return nil, err
		}
		pts := xys(proj)
		if len(pts) == 0 {
			continue
		}
		if dots || len(pts) == 1 {
			sc, err := scatter(pts, k, vg.Points(1))
			if err != nil {
				return nil, err
			}
			p.Add(sc)
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(1)
		line.LineStyle.Color = plotutil.Color(k)
		p.Add(line)
	}
	return p, nil
}

// SectionPlot scatters section crossings projected onto xi and yi.
func SectionPlot(cs []analysis.Crossing, xi, yi int, title string) (*plot.Plot, error) {
	states := make([]sim.Snapshot, 1)
	for _, c := range cs {
		states[0].History = append(states[0].History, c.State)
	}
	return PhasePortrait(states, xi, yi, title, true)
}

// BifurcationPlot scatters the post-transient samples against the swept
// parameter. Parameter values without enough samples are marked along the
// bottom axis.
func BifurcationPlot(recs []analysis.Record, param, title string) (*plot.Plot, error) {
	p := newPlot(title, param, "x")
	var pts, escaped plotter.XYs
	lo := math.Inf(1)
	for _, r := range recs {
		for _, v := range r.Samples {
			if r.Valid() && !math.IsNaN(v) && !math.IsInf(v, 0) {
				pts = append(pts, plotter.XY{X: r.Param, Y: v})
				lo = math.Min(lo, v)
			}
		}
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("bifurcation plot: no bounded samples")
	}
	for _, r := range recs {
		if !r.Valid() {
			escaped = append(escaped, plotter.XY{X: r.Param, Y: lo})
		}
	}

	sc, err := scatter(pts, 0, vg.Points(0.4))
	if err != nil {
		return nil, err
	}
	p.Add(sc)
	if len(escaped) > 0 {
		esc, err := scatter(escaped, 1, vg.Points(1.5))
		if err != nil {
			return nil, err
		}
		esc.GlyphStyle.Shape = draw.CrossGlyph{}
		p.Add(esc)
		p.Legend.Add("escaped", esc)
	}
	return p, nil
}

// DivergencePlot draws log10 of the pair separation over time. A finite
// lambda is shown in the title.
func DivergencePlot(samples []analysis.DivergenceSample, lambda float64, title string) (*plot.Plot, error) {
	if !math.IsNaN(lambda) {
		title = fmt.Sprintf("%s (λ ≈ %.4f)", title, lambda)
	}
	p := newPlot(title, "t", "log10 d")
	pts := make([]analysis.Point, len(samples))
	for i, s := range samples {
		pts[i] = analysis.Point{X: s.Time, Y: s.Log10}
	}
	line, err := plotter.NewLine(xys(pts))
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = plotutil.Color(0)
	p.Add(line)
	return p, nil
}

func SpectrumPlot(s analysis.Spectrum, title string) (*plot.Plot, error) {
	p := newPlot(title, "frequency", "power")
	pts := make([]analysis.Point, 0, len(s.Freq))
	for i := range s.Freq {
		pts = append(pts, analysis.Point{X: s.Freq[i], Y: s.Power[i]})
	}
	line, err := plotter.NewLine(xys(pts))
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = plotutil.Color(2)
	p.Add(line)
	return p, nil
}

// Save writes p to path. The format follows the extension: .png is
// rasterised at a fixed DPI, .svg and .pdf are vector.
func Save(p *plot.Plot, path string, widthIn, heightIn float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	w := vg.Length(widthIn) * vg.Inch
	h := vg.Length(heightIn) * vg.Inch

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return savePNG(p, w, h, path)
	case ".svg", ".pdf":
		return p.Save(w, h, path)
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}
}

func savePNG(p *plot.Plot, w, h vg.Length, path string) error {
	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(pngDPI))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}
