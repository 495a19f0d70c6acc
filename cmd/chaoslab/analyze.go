package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/experiment"
	"github.com/san-kum/chaoslab/internal/export"
	"github.com/san-kum/chaoslab/internal/storage"
	"github.com/san-kum/chaoslab/internal/viz"
)

var (
	scanParam     string
	scanMin       float64
	scanMax       float64
	scanRes       int
	scanTransient int
	scanSamples   int
	saveScan      bool
	withLyapunov  bool
)

func addScanFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&scanParam, "scan-param", "", "parameter to sweep")
	f.Float64Var(&scanMin, "min", 0, "sweep start")
	f.Float64Var(&scanMax, "max", 0, "sweep end")
	f.IntVar(&scanRes, "res", 200, "parameter values in the sweep")
	f.IntVar(&scanTransient, "transient", 500, "iterations discarded per value")
	f.IntVar(&scanSamples, "samples", 100, "iterations recorded per value")
	f.StringVar(&format, "format", "ascii", "output format (ascii, csv, png)")
	f.StringVarP(&outPath, "out", "o", "bifurcation.png", "output file for png")
	f.IntVar(&width, "width", canvasWidth, "ascii width in cells")
	f.IntVar(&height, "height", canvasHeight, "ascii height in cells")
	f.BoolVar(&saveScan, "save", false, "store the scan in the data directory")
	f.BoolVar(&withLyapunov, "lyapunov", false, "also plot the logistic exponent across the sweep")
}

// scanConfig applies the sweep flags over the configured scan, if any.
func scanConfig(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if cfg.Scan == nil {
		if !flags.Changed("scan-param") {
			return fmt.Errorf("%s has no scan configured: pass --scan-param or a preset with a scan", cfg.Model)
		}
		cfg.Scan = &analysis.ScanConfig{
			Resolution: scanRes,
			Transient:  scanTransient,
			Samples:    scanSamples,
		}
	}
	sc := cfg.Scan
	if flags.Changed("scan-param") {
		sc.Param = scanParam
	}
	if flags.Changed("min") {
		sc.Min = scanMin
	}
	if flags.Changed("max") {
		sc.Max = scanMax
	}
	if flags.Changed("res") {
		sc.Resolution = scanRes
	}
	if flags.Changed("transient") {
		sc.Transient = scanTransient
	}
	if flags.Changed("samples") {
		sc.Samples = scanSamples
	}
	return sc.Validate()
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := scanConfig(cmd, cfg); err != nil {
		return err
	}
	exp, err := experiment.New(experiment.NewRegistry(), cfg, logger)
	if err != nil {
		return err
	}

	recs, _, err := exp.Scan()
	if err != nil {
		return err
	}

	if saveScan {
		st := storage.New(dataDir)
		meta := storage.NewMetadata(storage.KindScan, cfg, exp.Field(), nil)
		id, err := st.SaveScan(meta, recs)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved scan %s\n", id)
	}

	switch format {
	case "ascii":
		canvas, b := viz.Bifurcation(recs, width, height)
		fmt.Printf("%s: x%d vs %s\n", cfg.Model, cfg.Scan.Component, cfg.Scan.Param)
		fmt.Printf("x: [%.3f, %.3f]\n", b.MinY, b.MaxY)
		fmt.Print(canvas.String())
		fmt.Printf("%s: [%.3f, %.3f]\n", cfg.Scan.Param, b.MinX, b.MaxX)
		printPeriods(recs)
	case "csv":
		if err := writeScanCSV(recs); err != nil {
			return err
		}
	case "png":
		p, err := export.BifurcationPlot(recs, cfg.Scan.Param, fmt.Sprintf("%s bifurcation", cfg.Model))
		if err != nil {
			return err
		}
		if err := export.Save(p, outPath, export.DefaultWidth, export.DefaultHeight); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
	default:
		return fmt.Errorf("unknown format %q (want ascii, csv or png)", format)
	}

	if withLyapunov {
		return plotLogisticLyapunov(cfg)
	}
	return nil
}

// periodLabel names the regime of one record. Records with too few samples
// are reported as escaped or sparse whatever their period.
func periodLabel(r analysis.Record) string {
	switch {
	case !r.Valid() && r.Escaped:
		return "escaped"
	case !r.Valid():
		return "too few samples"
	case r.Escaped:
		return "escaped late"
	case r.Period > 0:
		return "period " + strconv.Itoa(r.Period)
	}
	return "chaotic"
}

// printPeriods summarises the detected cycle lengths as contiguous bands.
func printPeriods(recs []analysis.Record) {
	var bands []string
	start := 0
	for i := 1; i <= len(recs); i++ {
		label := periodLabel(recs[start])
		if i < len(recs) && periodLabel(recs[i]) == label {
			continue
		}
		bands = append(bands, fmt.Sprintf("[%.4f, %.4f] %s", recs[start].Param, recs[i-1].Param, label))
		start = i
	}
	fmt.Println(strings.Join(bands, "\n"))
}

func writeScanCSV(recs []analysis.Record) error {
	w := csv.NewWriter(os.Stdout)
	if err := w.Write([]string{"param", "escaped", "period", "value"}); err != nil {
		return err
	}
	for _, r := range recs {
		head := []string{
			strconv.FormatFloat(r.Param, 'g', -1, 64),
			strconv.FormatBool(r.Escaped),
			strconv.Itoa(r.Period),
		}
		if len(r.Samples) == 0 {
			if err := w.Write(append(head, "")); err != nil {
				return err
			}
			continue
		}
		for _, v := range r.Samples {
			if err := w.Write(append(head, strconv.FormatFloat(v, 'g', -1, 64))); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func plotLogisticLyapunov(cfg *config.Config) error {
	if cfg.Model != "logistic" || cfg.Scan.Param != "r" {
		return fmt.Errorf("--lyapunov needs a logistic scan over r")
	}
	x0 := 0.5
	if len(cfg.Scan.X0) > 0 {
		x0 = cfg.Scan.X0[0]
	}

	grid := cfg.Scan.Grid()
	lambdas := make([]float64, 0, len(grid))
	for _, r := range grid {
		l, err := analysis.LogisticLyapunov(r, x0, cfg.Scan.Transient, cfg.Scan.Samples)
		if err != nil {
			return fmt.Errorf("r=%g: %w", r, err)
		}
		lambdas = append(lambdas, max(l, -2))
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(lambdas,
		asciigraph.Height(10),
		asciigraph.Width(graphWidth),
		asciigraph.Caption("lyapunov exponent vs r (clipped at -2)"),
	))
	return nil
}

func runLyapunov(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd, args)
	if err != nil {
		return err
	}
	cfg := exp.Config()

	ens, err := exp.PairEnsemble()
	if err != nil {
		return err
	}
	tr, err := exp.Tracker(ens, 0, 1)
	if err != nil {
		return err
	}
	if _, err := tr.Sample(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	for i := 0; i < cfg.Steps && ctx.Err() == nil; i++ {
		if _, err := ens.Tick(cfg.Dt, cfg.SubSteps); err != nil {
			return err
		}
		if _, err := tr.Sample(); err != nil {
			if errors.Is(err, dynamo.ErrDivergent) {
				logger.Warn("pair diverged, stopping", "step", i, "t", ens.Time())
				break
			}
			return err
		}
	}

	samples := tr.Samples()
	logs := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !math.IsInf(s.Log10, 0) {
			logs = append(logs, s.Log10)
		}
	}
	if len(logs) > 1 {
		fmt.Println(asciigraph.Plot(logs,
			asciigraph.Height(12),
			asciigraph.Width(graphWidth),
			asciigraph.Caption(fmt.Sprintf("log10 separation, %s d0=%g", cfg.Model, cfg.Divergence.Perturbation)),
		))
		fmt.Println()
	}

	lambda, err := tr.EstimateLyapunov(cfg.Divergence.Window)
	switch {
	case errors.Is(err, dynamo.ErrInsufficientSamples):
		fmt.Printf("not enough samples for a %d-sample window\n", cfg.Divergence.Window)
		lambda = math.NaN()
	case err != nil:
		return err
	default:
		fmt.Printf("divergence rate (window %d): %.4f\n", cfg.Divergence.Window, lambda)
	}

	if err := benettin(exp); err != nil {
		logger.Warn("benettin estimate failed", "error", err)
	}

	if outPath != "" {
		p, err := export.DivergencePlot(samples, lambda, fmt.Sprintf("%s divergence", cfg.Model))
		if err != nil {
			return err
		}
		if err := export.Save(p, outPath, export.DefaultWidth, export.DefaultHeight); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
	}
	return nil
}

// benettin prints the renormalised largest exponent over the same horizon.
func benettin(exp *experiment.Experiment) error {
	cfg := exp.Config()
	initial, err := exp.InitialStates()
	if err != nil {
		return err
	}
	factory, err := experiment.NewRegistry().GetIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}

	duration := float64(cfg.Steps * cfg.SubSteps)
	if !dynamo.IsDiscrete(exp.Field()) {
		duration *= cfg.Dt
	}
	l, err := analysis.LyapunovExponent(exp.Field(), factory(), initial[0], cfg.Dt, duration, cfg.Divergence.Perturbation)
	if err != nil {
		return err
	}
	fmt.Printf("largest exponent (renormalised): %.4f\n", l)
	return nil
}

var (
	sectionIndex int
	sectionLevel float64
)

func runSection(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Section == nil {
		cfg.Section = &config.SectionConfig{Kind: "threshold", Index: sectionIndex, Level: sectionLevel}
	}
	exp, err := experiment.New(experiment.NewRegistry(), cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	if len(res.Crossings) == 0 {
		fmt.Println("no crossings recorded")
		return nil
	}

	states := make([]dynamo.State, len(res.Crossings))
	for i, c := range res.Crossings {
		states[i] = c.State
	}
	pts, err := analysis.Project(states, xAxis, yAxis)
	if err != nil {
		return err
	}

	canvas := viz.NewCanvas(canvasWidth, canvasHeight)
	v := viz.Viewport{Canvas: canvas, Bounds: analysis.BoundsOf(pts, 0.05)}
	v.Scatter(pts)

	fmt.Printf("%s %s section: %d crossings, x%d vs x%d\n",
		cfg.Model, cfg.Section.Kind, len(res.Crossings), xAxis, yAxis)
	fmt.Printf("y: [%.3f, %.3f]\n", v.Bounds.MinY, v.Bounds.MaxY)
	fmt.Print(canvas.String())
	fmt.Printf("x: [%.3f, %.3f]\n", v.Bounds.MinX, v.Bounds.MaxX)

	if outPath != "" {
		p, err := export.SectionPlot(res.Crossings, xAxis, yAxis, fmt.Sprintf("%s section", cfg.Model))
		if err != nil {
			return err
		}
		if err := export.Save(p, outPath, export.DefaultWidth, export.DefaultHeight); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args[:1])
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("comparing integrators for %s (dt=%.4f, steps=%d)\n\n", base.Model, base.Dt, base.Steps*base.SubSteps)
	fmt.Printf("%-12s  %-12s  %-12s  %-12s  %-12s\n", "integrator", "final_x0", "energy_drift", "live", "time_ms")
	fmt.Println(strings.Repeat("-", 66))

	for _, name := range args[1:] {
		cfg := base.Clone()
		cfg.Integrator = name

		exp, err := experiment.New(reg, cfg, logger)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}
		res, err := exp.Run(ctx)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		finalX0 := math.NaN()
		if len(res.Snapshots) > 0 && len(res.Snapshots[0].Current) > 0 {
			finalX0 = res.Snapshots[0].Current[0]
		}
		drift, ok := res.Metrics["energy_drift"]
		if !ok {
			drift = math.NaN()
		}

		fmt.Printf("%-12s  %12.6f  %12.2e  %12d  %12.2f\n",
			name, finalX0, drift, res.Report.Live, float64(res.Elapsed.Microseconds())/1000)
	}
	return nil
}
