package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/abfsim/internal/analysis"
	"github.com/san-kum/abfsim/internal/config"
	"github.com/san-kum/abfsim/internal/controllers"
	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/integrators"
	"github.com/san-kum/abfsim/internal/metrics"
	"github.com/san-kum/abfsim/internal/sim"
	"github.com/san-kum/abfsim/internal/storage"
	"github.com/san-kum/abfsim/internal/tui"
)

var (
	sweepMax       float64
	sweepPoints    int
	sweepTransient float64
	sweepRecord    float64
)

func runRollout(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	simCfg := sim.Config{Dt: cfg.Rollout.Dt, Duration: cfg.Rollout.Duration}
	newController := func() dynamo.Controller {
		c, _ := controllers.New(cfg.Rollout, cfg.Env.ActionLow, cfg.Env.ActionHigh)
		return c
	}
	ctrl, err := controllers.New(cfg.Rollout, cfg.Env.ActionLow, cfg.Env.ActionHigh)
	if err != nil {
		return err
	}

	if ensemble > 0 {
		return runEnsemble(ctx, cfg, simCfg, newController)
	}

	solver, err := integrators.NewSolver(cfg.Integrator)
	if err != nil {
		return err
	}
	s := sim.New(coeffs, solver, ctrl)
	for _, m := range metrics.Default(cfg.Env.SuccessRadius) {
		s.AddMetric(m)
	}

	var renderer *tui.LiveRenderer
	if live {
		renderer = tui.NewLiveRenderer(os.Stdout, cfg.Env.BoxLength/2, frameRate)
		s.AddObserver(renderer)
		renderer.Start()
	}

	logger.Info("running rollout", "swimmers", coeffs.Len(), "controller", cfg.Rollout.Controller, "integrator", cfg.Integrator)
	start := time.Now()
	result, err := s.Run(ctx, cfg.InitialPositions(), simCfg)
	if renderer != nil {
		renderer.Stop()
	}
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("samples: %d\n", len(result.Records))
	final := result.Final()
	for i, x := range final.X {
		fmt.Printf("  x%d: %+.6f\n", i, x)
	}
	printMetrics(result.Metrics)

	if !save {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(runMetadata(cfg), result)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func runEnsemble(ctx context.Context, cfg *config.Config, simCfg sim.Config, newController func() dynamo.Controller) error {
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return err
	}
	if _, err := integrators.NewSolver(cfg.Integrator); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	half := cfg.Env.BoxLength / 2
	starts := make([][]float64, ensemble)
	for k := range starts {
		starts[k] = make([]float64, coeffs.Len())
		for i := range starts[k] {
			starts[k][i] = (2*rng.Float64() - 1) * half
		}
	}

	e := sim.NewEnsemble(coeffs,
		func() dynamo.Solver {
			s, _ := integrators.NewSolver(cfg.Integrator)
			return s
		},
		newController,
		func() []dynamo.Metric { return metrics.Default(cfg.Env.SuccessRadius) },
	)

	logger.Info("running ensemble", "members", ensemble, "swimmers", coeffs.Len())
	start := time.Now()
	results, err := e.Run(ctx, starts, simCfg)
	if err != nil {
		return err
	}

	fmt.Printf("completed %d rollouts in %v\n", len(results), time.Since(start))
	fmt.Println("\nmean metrics:")
	printMetrics(sim.MeanMetrics(results))
	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("metrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runMetadata(cfg *config.Config) storage.RunMetadata {
	coeffs, _ := cfg.Coefficients()
	meta := storage.RunMetadata{
		Preset:     preset,
		Seed:       cfg.Seed,
		Dt:         cfg.Rollout.Dt,
		Duration:   cfg.Rollout.Duration,
		Integrator: cfg.Integrator,
		Controller: cfg.Rollout.Controller,
	}
	if coeffs != nil {
		for _, p := range coeffs.Pairs() {
			meta.Bmb = append(meta.Bmb, p[0])
			meta.Cmb = append(meta.Cmb, p[1])
		}
	}
	return meta
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tSWIMMERS\tDURATION\tDT\tINTEG\tCTRL")
	for _, run := range runs {
		name := run.Preset
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.4f\t%s\t%s\n",
			run.ID,
			name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			len(run.Bmb),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Controller,
		)
	}
	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *sim.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	result, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(result.Records) == 0 {
		return nil, nil, fmt.Errorf("no data in run %s", runID)
	}
	return meta, result, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(result.Records))

	n := min(len(result.Records[0].X), 6)
	series := make([][]float64, n)
	for i := range series {
		series[i] = result.Positions(i)
	}
	colors := []asciigraph.AnsiColor{asciigraph.Cyan, asciigraph.Yellow, asciigraph.Green, asciigraph.Magenta, asciigraph.Red, asciigraph.Blue}
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.SeriesColors(colors[:n]...),
		asciigraph.Caption("swimmer positions"),
	))
	fmt.Println()

	drive := make([]float64, len(result.Records))
	for k, rec := range result.Records {
		drive[k] = rec.Omega
	}
	fmt.Println(asciigraph.Plot(drive,
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("drive frequency"),
	))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, result)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	i := pidSwimmer
	if i < 0 || i >= len(result.Records[0].X) {
		return fmt.Errorf("swimmer %d out of range", i)
	}

	w := result.AngularVelocities(i)
	if ps := analysis.PowerSpectrum(w); len(ps) > 1 {
		fmt.Println(asciigraph.Plot(ps[1:min(len(ps), 81)],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (angular velocity, swimmer %d)", i)),
		))
	}

	slip := analysis.DominantFrequency(w, meta.Dt)
	fmt.Printf("\ndominant frequency: %.6f\n", slip)
	if i < len(meta.Cmb) {
		final := result.Final().Omega
		if math.Abs(final) > math.Abs(meta.Cmb[i]) {
			fmt.Printf("expected slip rate: %.6f\n", math.Sqrt(final*final-meta.Cmb[i]*meta.Cmb[i])/(2*math.Pi))
		} else {
			fmt.Println("swimmer is below step-out; expected slip rate: 0")
		}
	}

	fmt.Println("\nphase portrait (lag vs angular velocity):")
	fmt.Println(analysis.PhasePortraitToASCII(analysis.GeneratePhasePortrait(result, i), 60, 18))

	section := analysis.GenerateStroboscopicSection(result, i)
	if len(section.Points) > 0 {
		fmt.Println("stroboscopic section:")
		fmt.Println(analysis.StroboscopicSectionToASCII(section, 60, 18))
	}
	return nil
}

func stability(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return err
	}
	w := omega
	if !cmd.Flags().Changed("omega") {
		w = cfg.Rollout.Omega
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SWIMMER\tCMB\tREGIME\tLAG EXPONENT\tEXPECTED")
	for i := 0; i < coeffs.Len(); i++ {
		solver, err := integrators.NewSolver(cfg.Integrator)
		if err != nil {
			return err
		}
		lambda, err := analysis.LagExponent(coeffs, i, w, 0.1, duration, solver)
		if err != nil {
			return err
		}
		c := coeffs.Cmb(i)
		regime, expected := "locked", -math.Sqrt(math.Max(c*c-w*w, 0))
		if math.Abs(w) > math.Abs(c) {
			regime, expected = "slipping", 0
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%+.6f\t%+.6f\n", i, c, regime, lambda, expected)
	}
	return tw.Flush()
}

// defaultMax is 1.5 times the largest critical frequency.
func defaultMax(cfg *config.Config) (float64, error) {
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return 0, err
	}
	m := 0.0
	for i := 0; i < coeffs.Len(); i++ {
		m = math.Max(m, math.Abs(coeffs.CriticalFrequency(i)))
	}
	return 1.5 * m, nil
}

func sweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return err
	}
	if _, err := integrators.NewSolver(cfg.Integrator); err != nil {
		return err
	}
	hi := sweepMax
	if hi <= 0 {
		if hi, err = defaultMax(cfg); err != nil {
			return err
		}
	}

	ws := make([]float64, sweepPoints)
	for k := range ws {
		ws[k] = hi * float64(k+1) / float64(sweepPoints)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("sweeping", "frequencies", len(ws), "max", hi)
	points, err := analysis.FrequencySweep(ctx, coeffs,
		func() dynamo.Solver {
			s, _ := integrators.NewSolver(cfg.Integrator)
			return s
		},
		ws, cfg.Rollout.Dt, sweepTransient, sweepRecord)
	if err != nil {
		return err
	}

	fmt.Println(analysis.SweepToASCII(points, 70, 20))

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "OMEGA")
	for i := 0; i < coeffs.Len(); i++ {
		fmt.Fprintf(tw, "\tDRIFT%d", i)
	}
	fmt.Fprintln(tw)
	for _, p := range points {
		fmt.Fprintf(tw, "%.4f", p.Omega)
		for i, d := range p.Drift {
			mark := ""
			if !p.Locked[i] {
				mark = " *"
			}
			fmt.Fprintf(tw, "\t%+.6f%s", d, mark)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Println("* slipping")
	return nil
}
