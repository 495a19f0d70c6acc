package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/export"
	"github.com/san-kum/chaoslab/internal/sim"
	"github.com/san-kum/chaoslab/internal/storage"
	"github.com/san-kum/chaoslab/internal/viz"
)

const (
	maxPlots     = 6
	graphWidth   = 80
	canvasWidth  = 60
	canvasHeight = 20
	svgScale     = 4
	spectrumBins = 200
)

func runSimulation(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd, args)
	if err != nil {
		return err
	}
	cfg := exp.Config()

	ctx, cancel := signalContext()
	defer cancel()

	res, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	meta := storage.NewMetadata(storage.KindRun, cfg, exp.Field(), res.Metrics)
	runID, err := st.Save(meta, res.Snapshots)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("model: %s %s\n", cfg.Model, exp.Field().Params())
	fmt.Printf("steps: %d  t=%.3f  live: %d/%d  elapsed: %s\n",
		res.Report.Steps, res.Report.Time, res.Report.Live, len(res.Snapshots), res.Elapsed)
	if n := len(res.Report.Divergences); n > 0 {
		fmt.Printf("divergences: %d (first: %v)\n", n, res.Report.Divergences[0].Err)
	}
	if len(res.Crossings) > 0 {
		fmt.Printf("section crossings: %d\n", len(res.Crossings))
	}

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s: %.6g\n", name, res.Metrics[name])
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tMODEL\tTIME\tSTEPS\tDT\tINTEG\tTRAJ")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.4f\t%s\t%d\n",
			run.ID,
			run.Kind,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Integrator,
			run.Trajectories,
		)
	}

	return w.Flush()
}

// loadRun reads a stored run back as snapshots, the shape the renderers take.
func loadRun(args []string) (*storage.RunMetadata, []sim.Snapshot, error) {
	st := storage.New(dataDir)
	meta, err := resolveRun(st, args, storage.KindRun)
	if err != nil {
		return nil, nil, err
	}
	recs, err := st.LoadTrajectories(meta.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(recs) == 0 {
		return nil, nil, fmt.Errorf("run %s has no trajectory data", meta.ID)
	}

	snaps := make([]sim.Snapshot, len(recs))
	for i, r := range recs {
		snaps[i] = sim.Snapshot{Index: r.Index, Current: r.Last(), History: r.States}
		if len(r.Steps) > 0 {
			snaps[i].Steps = r.Steps[len(r.Steps)-1]
		}
	}
	return meta, snaps, nil
}

func pickTrajectory(snaps []sim.Snapshot, i int) (sim.Snapshot, error) {
	for _, s := range snaps {
		if s.Index == i {
			return s, nil
		}
	}
	return sim.Snapshot{}, fmt.Errorf("trajectory %d: %w", i, sim.ErrNoTrajectory)
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, snaps, err := loadRun(args)
	if err != nil {
		return err
	}
	snap, err := pickTrajectory(snaps, traj)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("trajectory %d, samples: %d\n\n", snap.Index, len(snap.History))

	numVars := min(len(snap.Current), maxPlots)
	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, 0, len(snap.History))
		for _, x := range snap.History {
			data = append(data, x[varIdx])
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(graphWidth),
			asciigraph.Caption(fmt.Sprintf("x%d vs step", varIdx)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, snaps, err := loadRun(args)
	if err != nil {
		return err
	}

	canvas, b, err := viz.Portrait(snaps, xAxis, yAxis, canvasWidth, canvasHeight, false)
	if err != nil {
		return err
	}

	fmt.Printf("%s  x%d vs x%d  (%d trajectories)\n", meta.Model, xAxis, yAxis, len(snaps))
	fmt.Printf("y: [%.3f, %.3f]\n", b.MinY, b.MaxY)
	fmt.Print(canvas.String())
	fmt.Printf("x: [%.3f, %.3f]\n", b.MinX, b.MaxX)

	if svgPath != "" {
		svg := export.CanvasToSVG(canvas, svgScale, "#33ff66")
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func exportPNG(cmd *cobra.Command, args []string) error {
	meta, snaps, err := loadRun(args)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s %s", meta.Model, meta.Params)
	p, err := export.PhasePortrait(snaps, xAxis, yAxis, title, false)
	if err != nil {
		return err
	}
	if err := export.Save(p, outPath, export.DefaultWidth, export.DefaultHeight); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := resolveRun(st, args, "")
	if err != nil {
		return err
	}
	if outPath == "" {
		return st.ExportJSONStdout(meta.ID)
	}
	if err := st.ExportJSON(meta.ID, outPath); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)
	return nil
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	meta, snaps, err := loadRun(args)
	if err != nil {
		return err
	}
	snap, err := pickTrajectory(snaps, traj)
	if err != nil {
		return err
	}
	if component < 0 || component >= len(snap.Current) {
		return fmt.Errorf("component %d out of range for %d-dimensional state", component, len(snap.Current))
	}

	data := make([]float64, len(snap.History))
	for i, x := range snap.History {
		data[i] = x[component]
	}

	// history is sampled once per frame
	sampleDt := meta.Dt * float64(max(meta.SubSteps, 1))
	var spec analysis.Spectrum
	if welchSegment > 0 {
		spec, err = analysis.WelchSpectrum(data, sampleDt, welchSegment)
	} else {
		spec, err = analysis.PowerSpectrum(data, sampleDt)
	}
	if err != nil {
		return err
	}

	bins := spec.Power
	if len(bins) > spectrumBins {
		bins = bins[:spectrumBins]
	}
	graph := asciigraph.Plot(bins,
		asciigraph.Height(15),
		asciigraph.Width(graphWidth),
		asciigraph.Caption(fmt.Sprintf("power spectrum (x%d)", component)),
	)
	fmt.Println(graph)
	fmt.Printf("\ndominant frequency: %.4f\n", spec.Dominant())

	if outPath != "" {
		p, err := export.SpectrumPlot(spec, fmt.Sprintf("%s x%d", meta.Model, component))
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
