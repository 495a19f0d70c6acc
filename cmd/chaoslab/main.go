package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/experiment"
	"github.com/san-kum/chaoslab/internal/logging"
	"github.com/san-kum/chaoslab/internal/storage"
)

var (
	dataDir  string
	logLevel string
	logger   *slog.Logger

	configFile string
	preset     string
	paramFlags []string
	seed       uint64
	dt         float64
	subSteps   int
	steps      int
	capacity   int
	integrator string
	count      int

	xAxis        int
	yAxis        int
	component    int
	traj         int
	welchSegment int
	outPath      string
	svgPath      string
	format       string
	width        int
	height       int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "chaoslab",
		Short:         "chaotic dynamics laboratory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = logging.New(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".chaoslab", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models and their parameters",
		Args:  cobra.NoArgs,
		RunE:  listModels,
	}

	describeCmd := &cobra.Command{
		Use:   "describe [model]",
		Short: "show a model's equations, parameters and presets",
		Args:  cobra.ExactArgs(1),
		RunE:  describeModel,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run an ensemble and store its trajectories",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot each component of a stored trajectory against time",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&traj, "traj", 0, "trajectory index")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "braille phase portrait of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  phasePlot,
	}
	addAxisFlags(phaseCmd)
	phaseCmd.Flags().StringVar(&svgPath, "svg", "", "also write the portrait as svg")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render a stored run's phase portrait to png, svg or pdf",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportPNG,
	}
	addAxisFlags(exportPNGCmd)
	exportPNGCmd.Flags().StringVarP(&outPath, "out", "o", "portrait.png", "output file")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as json",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	scanCmd := &cobra.Command{
		Use:   "scan [model]",
		Short: "bifurcation scan of a map over one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScan,
	}
	addSimFlags(scanCmd)
	addScanFlags(scanCmd)

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [model]",
		Short: "track divergence of two nearby trajectories",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLyapunov,
	}
	addSimFlags(lyapunovCmd)
	lyapunovCmd.Flags().StringVarP(&outPath, "out", "o", "", "write a divergence plot")

	sectionCmd := &cobra.Command{
		Use:   "section [model]",
		Short: "sample a Poincaré section",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSection,
	}
	addSimFlags(sectionCmd)
	addAxisFlags(sectionCmd)
	sectionCmd.Flags().StringVarP(&outPath, "out", "o", "", "write a section plot")
	sectionCmd.Flags().IntVar(&sectionIndex, "section-index", 0, "component for a threshold section when none is configured")
	sectionCmd.Flags().Float64Var(&sectionLevel, "section-level", 0, "level for a threshold section when none is configured")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "power spectrum of one component of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  spectrumRun,
	}
	spectrumCmd.Flags().IntVar(&component, "component", 0, "state component")
	spectrumCmd.Flags().IntVar(&traj, "traj", 0, "trajectory index")
	spectrumCmd.Flags().StringVarP(&outPath, "out", "o", "", "write a spectrum plot")
	spectrumCmd.Flags().IntVar(&welchSegment, "welch", 0, "average Hann segments of this length instead of one FFT")

	compareCmd := &cobra.Command{
		Use:   "compare [model] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same model",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addSimFlags(compareCmd)

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "interactive phase portrait in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	addLiveFlags(liveCmd)

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of experiments",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "run the ensemble once per value of a parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepSpec, "sweep", "", "parameter range name=min:max:n")
	sweepCmd.MarkFlagRequired("sweep")

	tuneCmd := &cobra.Command{
		Use:   "tune [model]",
		Short: "grid search parameters for the best run metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	addSimFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&gridSpecs, "grid", nil, "parameter range name=min:max:n (repeatable)")
	tuneCmd.Flags().StringVar(&metricName, "metric", "energy_drift", "run metric to optimise")
	tuneCmd.Flags().BoolVar(&maximize, "maximize", false, "prefer larger metric values")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve simulation sessions over http",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addServeFlags(serveCmd)

	rootCmd.AddCommand(
		modelsCmd, describeCmd, presetsCmd, runCmd, listCmd, plotCmd, phaseCmd,
		exportPNGCmd, exportJSONCmd, scanCmd, lyapunovCmd, sectionCmd,
		spectrumCmd, compareCmd, scenarioCmd, sweepCmd, tuneCmd, liveCmd, serveCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringArrayVar(&paramFlags, "param", nil, "parameter override name=value (repeatable)")
	f.Uint64Var(&seed, "seed", 1, "random seed")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	f.IntVar(&subSteps, "substeps", config.DefaultSubSteps, "integrator steps per frame")
	f.IntVar(&steps, "steps", config.DefaultSteps, "frames to run")
	f.IntVar(&capacity, "capacity", config.DefaultCapacity, "history length per trajectory")
	f.StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	f.IntVar(&count, "count", config.DefaultCount, "trajectories seeded around the default state")
}

func addAxisFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	cmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
}

// loadConfig resolves the experiment config. Flags override the config file,
// which overrides the preset, which overrides the defaults.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var model string
	if len(args) > 0 {
		model = args[0]
	}

	cfg := config.DefaultConfig()
	if preset != "" {
		if model == "" {
			return nil, fmt.Errorf("--preset needs a model")
		}
		if cfg = config.GetPreset(model, preset); cfg == nil {
			return nil, fmt.Errorf("no preset %q for %s (have: %s)",
				preset, model, strings.Join(config.ListPresets(model), ", "))
		}
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, err
		}
	}
	if model != "" {
		cfg.Model = model
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("substeps") {
		cfg.SubSteps = subSteps
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("capacity") {
		cfg.Capacity = capacity
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("count") {
		cfg.Ensemble.Count = count
		cfg.Ensemble.Initial = nil
	}
	for _, kv := range paramFlags {
		name, v, err := parseParam(kv)
		if err != nil {
			return nil, err
		}
		cfg.SetParam(name, v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseParam(kv string) (string, float64, error) {
	name, raw, ok := strings.Cut(kv, "=")
	if !ok || name == "" {
		return "", 0, fmt.Errorf("--param %q: want name=value", kv)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, fmt.Errorf("--param %s: %w", name, err)
	}
	return strings.TrimSpace(name), v, nil
}

func newExperiment(cmd *cobra.Command, args []string) (*experiment.Experiment, error) {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	return experiment.New(experiment.NewRegistry(), cfg, logger)
}

// signalContext is cancelled on interrupt so long runs stop cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// resolveRun returns the named run, or the latest run of kind.
func resolveRun(st *storage.Store, args []string, kind storage.Kind) (*storage.RunMetadata, error) {
	if len(args) > 0 {
		return st.Load(args[0])
	}
	return st.Latest(kind)
}

func listModels(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tKIND\tDIM\tPARAMS\tPRESETS")
	for _, name := range reg.ListModels() {
		info, err := reg.Describe(name)
		if err != nil {
			return err
		}
		kind := "flow"
		if info.Discrete {
			kind = "map"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			info.Name, kind, info.Dim, info.Params, strings.Join(info.Presets, ","))
	}
	return w.Flush()
}

// describeModel renders the model sheet as styled markdown on a terminal and
// as plain markdown otherwise.
func describeModel(cmd *cobra.Command, args []string) error {
	info, err := experiment.NewRegistry().Describe(args[0])
	if err != nil {
		return err
	}
	md := info.Markdown()
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print(md)
		return nil
	}

	width := graphWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = min(w, 100)
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
