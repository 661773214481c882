package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/abfsim/internal/config"
	"github.com/san-kum/abfsim/internal/env"
	"github.com/san-kum/abfsim/internal/integrators"
	"github.com/san-kum/abfsim/internal/optim"
	"github.com/san-kum/abfsim/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	seed       int64
	integrator string
	logLevel   string

	// rollout
	dt         float64
	duration   float64
	omega      float64
	controller string
	kp         float64
	ki         float64
	kd         float64
	target     float64
	pidSwimmer int
	positions  []float64
	live       bool
	frameRate  int
	save       bool
	ensemble   int

	// serve
	listenAddr  string
	ledgerKind  string
	ledgerPath  string
	maxEpisodes int
	maxSteps    int

	logger *log.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "abfsim",
		Short:         "artificial bacterial flagella swimmer lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				TimeFormat:      time.Kitchen,
				Level:           level,
			})
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".abfsim", "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.Int64Var(&seed, "seed", 0, "random seed (0 picks one from the clock)")
	pf.StringVar(&integrator, "integrator", config.DefaultIntegrator, "solver: "+strings.Join(integrators.Names(), ", "))
	pf.StringVar(&logLevel, "log-level", "info", "log level")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a rollout under a drive schedule",
		Args:  cobra.NoArgs,
		RunE:  runRollout,
	}
	addRolloutFlags(runCmd)
	runCmd.Flags().BoolVar(&live, "live", false, "animate the rollout in the terminal")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --live")
	runCmd.Flags().BoolVar(&save, "save", true, "save the run under the data directory")
	runCmd.Flags().IntVar(&ensemble, "ensemble", 0, "run this many rollouts from random starts instead")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve training episodes to an agent over stdio or tcp",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "tcp address to accept agents on (default stdio)")
	serveCmd.Flags().StringVar(&ledgerKind, "ledger", config.DefaultLedger, "episode ledger: memory or sqlite")
	serveCmd.Flags().StringVar(&ledgerPath, "ledger-path", "", "sqlite ledger file (default <data>/episodes.db)")
	serveCmd.Flags().IntVar(&maxEpisodes, "episodes", 0, "stop each session after this many episodes (0 = unlimited)")
	serveCmd.Flags().IntVar(&maxSteps, "max-steps", env.DefaultMaxSteps, "control intervals per episode")

	episodesCmd := &cobra.Command{
		Use:   "episodes [session_id]",
		Short: "list recorded training episodes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listEpisodes,
	}
	episodesCmd.Flags().StringVar(&ledgerPath, "ledger-path", "", "sqlite ledger file (default <data>/episodes.db)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "play episodes by hand, steering the field frequency",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	liveCmd.Flags().IntVar(&maxSteps, "max-steps", env.DefaultMaxSteps, "control intervals per episode")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot swimmer positions of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and phase analysis of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&pidSwimmer, "swimmer", 0, "swimmer to analyze")

	stabilityCmd := &cobra.Command{
		Use:   "stability",
		Short: "lag exponents of every swimmer at one drive frequency",
		Args:  cobra.NoArgs,
		RunE:  stability,
	}
	stabilityCmd.Flags().Float64Var(&omega, "omega", config.DefaultOmega, "drive frequency")
	stabilityCmd.Flags().Float64Var(&duration, "time", 200, "integration horizon")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "drift of every swimmer across drive frequencies",
		Args:  cobra.NoArgs,
		RunE:  sweep,
	}
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0, "highest frequency (default 1.5x the largest cmb)")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 30, "number of frequencies")
	sweepCmd.Flags().Float64Var(&sweepTransient, "transient", 50, "settling time before measuring")
	sweepCmd.Flags().Float64Var(&sweepRecord, "record", 400, "measurement window")

	velocityCmd := &cobra.Command{
		Use:   "velocity",
		Short: "mean drift velocity curve of each swimmer",
		Args:  cobra.NoArgs,
		RunE:  velocity,
	}
	velocityCmd.Flags().Float64Var(&sweepMax, "max", 0, "highest frequency (default 1.5x the largest cmb)")
	velocityCmd.Flags().IntVar(&sweepPoints, "points", 60, "number of frequencies")
	velocityCmd.Flags().Float64Var(&checkHorizon, "check", 0, "also integrate the model over this horizon at each cmb/2")

	fitCmd := &cobra.Command{
		Use:   "fit [measurements.csv]",
		Short: "fit bmb and cmb to measured velocities",
		Args:  cobra.ExactArgs(1),
		RunE:  fit,
	}
	fitCmd.Flags().Float64Var(&fitBmb, "bmb", 1, "initial bmb")
	fitCmd.Flags().Float64Var(&fitCmb, "cmb", 0, "initial cmb (default the fastest measured frequency)")

	propagateCmd := &cobra.Command{
		Use:   "propagate [samples.json]",
		Short: "propagate posterior samples to a velocity band plot",
		Args:  cobra.ExactArgs(1),
		RunE:  propagate,
	}
	propagateCmd.Flags().StringVar(&measurementsFile, "measurements", "", "measurements csv to overlay")
	propagateCmd.Flags().StringVar(&plotOut, "out", "velocity_band.png", "output png")
	propagateCmd.Flags().IntVar(&sweepPoints, "points", 100, "number of frequencies")
	propagateCmd.Flags().Float64Var(&sweepMax, "max", 0, "highest frequency (default 1.2x the fastest measurement)")

	tuneCmd := &cobra.Command{
		Use:   "tune name=lo:hi:n ...",
		Short: "grid search rollout parameters (" + strings.Join(optim.Tunable, ", ") + ")",
		Args:  cobra.MinimumNArgs(1),
		RunE:  tune,
	}
	addRolloutFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "mean_distance", "metric to optimize")
	tuneCmd.Flags().BoolVar(&tuneMaximize, "maximize", false, "maximize the metric instead")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of rollouts",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&save, "save", true, "save every step under the data directory")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, serveCmd, episodesCmd, liveCmd, listCmd, plotCmd, exportCmd,
		analyzeCmd, stabilityCmd, sweepCmd, velocityCmd, fitCmd, propagateCmd, tuneCmd, scenarioCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		if logger == nil {
			logger = log.New(os.Stderr)
		}
		logger.Error(err)
		os.Exit(1)
	}
}

func addRolloutFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&dt, "dt", config.DefaultRolloutDt, "sampling interval")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration")
	f.Float64Var(&omega, "omega", config.DefaultOmega, "drive frequency (constant controller)")
	f.StringVar(&controller, "controller", "constant", "controller: constant, schedule, pid")
	f.Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	f.Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	f.Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
	f.Float64Var(&target, "target", 0, "pid target position")
	f.IntVar(&pidSwimmer, "swimmer", 0, "swimmer steered by pid")
	f.Float64SliceVar(&positions, "x0", nil, "initial positions")
}

// resolveConfig layers the preset, the config file and changed flags, in
// that order, over the defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Lookup("dt") != nil && flags.Changed("dt") {
		cfg.Rollout.Dt = dt
	}
	if flags.Lookup("time") != nil && flags.Changed("time") {
		cfg.Rollout.Duration = duration
	}
	if flags.Lookup("omega") != nil && flags.Changed("omega") {
		cfg.Rollout.Omega = omega
	}
	if flags.Lookup("controller") != nil && flags.Changed("controller") {
		cfg.Rollout.Controller = controller
	}
	if flags.Lookup("kp") != nil {
		if flags.Changed("kp") {
			cfg.Rollout.PID.Kp = kp
		}
		if flags.Changed("ki") {
			cfg.Rollout.PID.Ki = ki
		}
		if flags.Changed("kd") {
			cfg.Rollout.PID.Kd = kd
		}
		if flags.Changed("target") {
			cfg.Rollout.PID.Target = target
		}
		if flags.Changed("swimmer") {
			cfg.Rollout.PID.Swimmer = pidSwimmer
		}
		if flags.Changed("x0") {
			cfg.Rollout.Positions = positions
		}
	}
	if flags.Lookup("max-steps") != nil && flags.Changed("max-steps") {
		cfg.Env.MaxSteps = maxSteps
	}
	if flags.Lookup("ledger") != nil && flags.Changed("ledger") {
		cfg.Serve.Ledger = ledgerKind
	}
	if flags.Lookup("ledger-path") != nil && flags.Changed("ledger-path") {
		cfg.Serve.LedgerPath = ledgerPath
	}
	if flags.Lookup("episodes") != nil && flags.Changed("episodes") {
		cfg.Serve.MaxEpisodes = maxEpisodes
	}
	if flags.Lookup("listen") != nil && flags.Changed("listen") {
		cfg.Serve.Listen = listenAddr
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newEnvironment builds an environment for cfg whose resets draw from a
// source seeded with cfg.Seed+offset.
func newEnvironment(cfg *config.Config, offset int64) (*env.Environment, error) {
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return nil, err
	}
	solver, err := integrators.NewSolver(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	return env.New(cfg.Env, coeffs, rand.New(rand.NewSource(cfg.Seed+offset)), env.WithSolver(solver))
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	e, err := newEnvironment(cfg, 0)
	if err != nil {
		return err
	}
	return tui.RunInteractive(e)
}
