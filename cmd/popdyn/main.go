package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/popdyn/internal/config"
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
	"github.com/san-kum/popdyn/internal/integrators"
	"github.com/san-kum/popdyn/internal/server"
	"github.com/san-kum/popdyn/internal/sim"
	"github.com/san-kum/popdyn/internal/viz"
)

var (
	// global
	configFile string
	logLevel   string
	logFormat  string
	cfg        *config.Config
	log        = logrus.NewEntry(logrus.StandardLogger())

	// run / compare / batch
	steps        int
	preset       string
	overrides    []string
	integrator   string
	csvPath      string
	jsonPath     string
	svgPath      string
	phaseSVGPath string
	plot         bool

	// analyze
	analyzeSteps int
	sweepParam   string
	sweepFrom    float64
	sweepTo      float64
	sweepPoints  int

	// serve
	addr        string
	historyTail int

	// scenario / montecarlo / tune
	outDir    string
	perturb   float64
	trials    int
	seed      int64
	grid      []string
	objective string

	// config init
	force bool
)

// main registers the commands and runs the root command. With no
// subcommand it opens the interactive model picker.
func main() {
	rootCmd := &cobra.Command{
		Use:           "popdyn",
		Short:         "two-species population dynamics engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(logLevel, logFormat); err != nil {
				return err
			}
			return loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive(sim.OptionsFromConfig(cfg), cfg.TickInterval)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a headless simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addParamFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", 2000, "number of integration steps")
	runCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (rk4, euler)")
	runCmd.Flags().StringVar(&csvPath, "csv", "", "write the trajectory as CSV (- for stdout)")
	runCmd.Flags().StringVar(&jsonPath, "json", "", "write the run as JSON (- for stdout)")
	runCmd.Flags().StringVar(&svgPath, "svg", "", "write a time-series SVG")
	runCmd.Flags().StringVar(&phaseSVGPath, "phase-svg", "", "write a phase-plane (N1 vs N2) SVG")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot N1 and N2 in the terminal")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run a simulation in the terminal UI",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addParamFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve sessions over websockets",
		Args:  cobra.NoArgs,
		RunE:  runServer,
	}
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&historyTail, "history-tail", server.DefaultHistoryTail, "history points per snapshot frame")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list parameter presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [model]",
		Short: "equilibrium, outcome and period analysis",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeModel,
	}
	addParamFlags(analyzeCmd)
	analyzeCmd.Flags().IntVar(&analyzeSteps, "steps", 10000, "steps integrated for period estimates")
	analyzeCmd.Flags().StringVar(&sweepParam, "sweep", "", "parameter to sweep")
	analyzeCmd.Flags().Float64Var(&sweepFrom, "from", 0, "sweep start value")
	analyzeCmd.Flags().Float64Var(&sweepTo, "to", 1, "sweep end value")
	analyzeCmd.Flags().IntVar(&sweepPoints, "points", 11, "sweep points")

	compareCmd := &cobra.Command{
		Use:   "compare [model]",
		Short: "compare rk4 against euler on the same run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareIntegrators,
	}
	addParamFlags(compareCmd)
	compareCmd.Flags().IntVar(&steps, "steps", 2000, "number of integration steps")

	batchCmd := &cobra.Command{
		Use:   "batch [model]",
		Short: "run every preset of a model concurrently",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().IntVar(&steps, "steps", 2000, "number of integration steps")

	scenarioCmd := &cobra.Command{
		Use:   "scenario <file.yaml>",
		Short: "run the steps of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenarioFile,
	}
	scenarioCmd.Flags().StringVar(&outDir, "out", ".", "directory for saved runs")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [model]",
		Short: "classify outcomes under jittered initial populations",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addParamFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&steps, "steps", 2000, "number of integration steps")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturb", 0.2, "relative jitter of N1_0 and N2_0")
	monteCarloCmd.Flags().IntVar(&trials, "trials", 100, "number of trials")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 draws from the clock)")

	tuneCmd := &cobra.Command{
		Use:   "tune [model]",
		Short: "grid-search parameters against an objective",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	addParamFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&steps, "steps", 2000, "number of integration steps")
	tuneCmd.Flags().StringArrayVar(&grid, "grid", nil, "grid axis name=lo:hi:n (repeatable)")
	tuneCmd.Flags().StringVar(&objective, "objective", "persistence", "objective (drift, persistence)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init <file.yaml> [model]",
		Short: "write a configuration file seeded from defaults or a preset",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  initConfig,
	}
	addParamFlags(configInitCmd)
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, presetsCmd, analyzeCmd, compareCmd, batchCmd,
		scenarioCmd, monteCarloCmd, tuneCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "start from a named preset")
	cmd.Flags().StringArrayVar(&overrides, "set", nil, "override a parameter (name=value, repeatable)")
}

func setupLogging(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger := logrus.StandardLogger()
	logger.SetLevel(lvl)
	logger.SetOutput(os.Stderr)
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

func loadConfig() error {
	if configFile == "" {
		cfg = config.DefaultConfig()
		return nil
	}
	c, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = c
	log.WithField("path", configFile).Debug("config loaded")
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func modelArg(args []string) (dynamo.ModelKind, error) {
	if len(args) == 0 {
		return cfg.Model, nil
	}
	return dynamo.ParseModelKind(args[0])
}

// resolveParams starts from the configured defaults or --preset and
// applies every --set override atomically.
func resolveParams(kind dynamo.ModelKind) (ecology.Params, error) {
	p := cfg.Params(kind)
	if preset != "" {
		p = config.GetPreset(kind, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(kind))
		}
	}

	values, err := parseOverrides(overrides)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return p, nil
	}
	return ecology.ApplyAll(p, values)
}

func parseOverrides(sets []string) (map[string]float64, error) {
	values := make(map[string]float64, len(sets))
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want name=value", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", s, err)
		}
		values[strings.TrimSpace(name)] = v
	}
	return values, nil
}

func sessionOptions(integName string) (sim.Options, error) {
	opts := sim.OptionsFromConfig(cfg)
	integ, ok := integrators.ByName(integName, cfg.ExtinctionFloor)
	if !ok {
		return opts, fmt.Errorf("unknown integrator: %s", integName)
	}
	opts.Integrator = integ
	return opts, nil
}

func runLive(cmd *cobra.Command, args []string) error {
	kind, err := modelArg(args)
	if err != nil {
		return err
	}
	p, err := resolveParams(kind)
	if err != nil {
		return err
	}
	sess, err := sim.New(p, sim.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	return viz.RunLive(sess, cfg.TickInterval)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	srv := server.New(server.Config{
		Options:      sim.OptionsFromConfig(cfg),
		Model:        cfg.Model,
		TickInterval: cfg.TickInterval,
		HistoryTail:  historyTail,
	}, log)
	return srv.ListenAndServe(ctx, addr)
}
