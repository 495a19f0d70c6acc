package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/chaoslab/internal/automation"
	"github.com/san-kum/chaoslab/internal/experiment"
	"github.com/san-kum/chaoslab/internal/optim"
	"github.com/san-kum/chaoslab/internal/storage"
)

var (
	sweepSpec  string
	gridSpecs  []string
	metricName string
	maximize   bool
)

// parseRange reads name=min:max:n.
func parseRange(spec string) (string, float64, float64, int, error) {
	name, rest, ok := strings.Cut(spec, "=")
	parts := strings.Split(rest, ":")
	if !ok || name == "" || len(parts) != 3 {
		return "", 0, 0, 0, fmt.Errorf("range %q: want name=min:max:n", spec)
	}
	lo, err1 := strconv.ParseFloat(parts[0], 64)
	hi, err2 := strconv.ParseFloat(parts[1], 64)
	n, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return "", 0, 0, 0, fmt.Errorf("range %q: want name=min:max:n", spec)
	}
	if n < 1 {
		return "", 0, 0, 0, fmt.Errorf("range %q: need at least one value", spec)
	}
	return strings.TrimSpace(name), lo, hi, n, nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), storage.New(dataDir), logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tMODEL\tSUMMARY\tRUN")
	for _, r := range results {
		summary := fmt.Sprintf("%d values scanned", len(r.Records))
		if r.Result != nil {
			summary = fmt.Sprintf("t=%.2f live=%d/%d", r.Result.Report.Time, r.Result.Report.Live, len(r.Result.Snapshots))
		}
		id := r.RunID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Step, r.Model, summary, id)
	}
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	name, lo, hi, n, err := parseRange(sweepSpec)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base: cfg, Param: name, Min: lo, Max: hi, Values: n,
	}, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	var names []string
	for _, r := range results {
		if r.Err == nil {
			for k := range r.Metrics {
				names = append(names, k)
			}
			break
		}
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSURVIVAL\tFINAL\t%s\n", strings.ToUpper(name), strings.ToUpper(strings.Join(names, "\t")))
	survival := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%.4g\terror: %v\n", r.Value, r.Err)
			survival = append(survival, 0)
			continue
		}
		cols := make([]string, len(names))
		for i, k := range names {
			cols[i] = strconv.FormatFloat(r.Metrics[k], 'g', 4, 64)
		}
		fmt.Fprintf(w, "%.4g\t%.2f\t%.4g\t%s\n", r.Value, r.Survival(), r.Final, strings.Join(cols, "\t"))
		survival = append(survival, r.Survival())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(survival) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(survival,
			asciigraph.Height(8),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("surviving fraction vs "+name),
		))
	}
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(gridSpecs) == 0 {
		return fmt.Errorf("tune needs at least one --grid name=min:max:n")
	}

	names := make([]string, len(gridSpecs))
	ranges := make([][]float64, len(gridSpecs))
	for i, spec := range gridSpecs {
		name, lo, hi, n, err := parseRange(spec)
		if err != nil {
			return err
		}
		names[i], ranges[i] = name, optim.Linspace(lo, hi, n)
	}

	g := optim.NewGridSearch(names, ranges)
	if maximize {
		g.Maximize()
	}

	reg := experiment.NewRegistry()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		for k, v := range params {
			cfg.SetParam(k, v)
		}
		return experiment.New(reg, cfg, nil)
	}

	ctx, cancel := signalContext()
	defer cancel()

	best, err := g.Search(ctx, build, metricName)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %d points (%d failed)\n", best.Evaluated, best.Failed)
	fmt.Printf("best %s: %.6g\n", metricName, best.Value)
	for _, name := range names {
		fmt.Printf("  %s = %.6g\n", name, best.Params[name])
	}
	return nil
}
