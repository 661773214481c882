package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/abfsim/internal/automation"
	"github.com/san-kum/abfsim/internal/optim"
	"github.com/san-kum/abfsim/internal/storage"
)

var (
	tuneMetric   string
	tuneMaximize bool
)

// parseRange reads "name=lo:hi:n" into a parameter name and its grid.
func parseRange(s string) (string, []float64, error) {
	name, grid, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("range %q: expected name=lo:hi:n", s)
	}
	parts := strings.Split(grid, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("range %q: expected name=lo:hi:n", s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("range %q: %w", s, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("range %q: %w", s, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("range %q: point count must be a positive integer", s)
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func tune(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(args))
	ranges := make([][]float64, 0, len(args))
	for _, a := range args {
		name, grid, err := parseRange(a)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, grid)
	}

	obj, err := optim.RolloutObjective(cfg, tuneMetric, tuneMaximize)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("grid search", "params", names, "metric", tuneMetric, "controller", cfg.Rollout.Controller)
	best, val, err := optim.NewGridSearch(names, ranges).Search(ctx, obj)
	if err != nil {
		return err
	}
	if tuneMaximize {
		val = -val
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("best:")
	for _, k := range keys {
		fmt.Printf("  %s: %.6f\n", k, best[k])
	}
	fmt.Printf("%s: %.6f\n", tuneMetric, val)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("running scenario", "name", sc.Name, "steps", len(sc.Steps))
	results, err := automation.RunScenario(ctx, sc, cfg, os.Stderr)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if save {
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSAMPLES\tMEAN DIST\tMAX EXCURSION\tFINAL\tRUN")
	for i, r := range results {
		runID := "-"
		if save {
			meta := runMetadata(cfg)
			meta.Preset = fmt.Sprintf("%s/%s", sc.Name, r.Name)
			rc := sc.Steps[i]
			if rc.Dt > 0 {
				meta.Dt = rc.Dt
			}
			if rc.Duration > 0 {
				meta.Duration = rc.Duration
			}
			if runID, err = st.Save(meta, r.Result); err != nil {
				return err
			}
		}
		final := r.Result.Final().X
		parts := make([]string, len(final))
		for k, x := range final {
			parts[k] = strconv.FormatFloat(x, 'f', 3, 64)
		}
		fmt.Fprintf(w, "%s\t%d\t%.4f\t%.4f\t[%s]\t%s\n",
			r.Name,
			len(r.Result.Records),
			r.Result.Metrics["mean_distance"],
			r.Result.Metrics["max_excursion"],
			strings.Join(parts, " "),
			runID,
		)
	}
	return w.Flush()
}
