package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/abfsim/internal/calibration"
)

var (
	checkHorizon     float64
	fitBmb           float64
	fitCmb           float64
	measurementsFile string
	plotOut          string
)

func velocity(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return err
	}
	hi := sweepMax
	if hi <= 0 {
		if hi, err = defaultMax(cfg); err != nil {
			return err
		}
	}
	ws := calibration.Grid(hi, sweepPoints)

	series := make([][]float64, 0, coeffs.Len())
	for _, p := range coeffs.Pairs() {
		series = append(series, calibration.Curve(p[0], p[1], ws))
	}
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("mean drift velocity, omega in [0, %.3g]", hi)),
	))

	if checkHorizon <= 0 {
		return nil
	}

	fmt.Println()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SWIMMER\tOMEGA\tAVERAGED\tINTEGRATED")
	for i, p := range coeffs.Pairs() {
		w := p[1] / 2
		v, err := calibration.IntegratedDriftVelocity(p[0], p[1], w, checkHorizon)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%+.6f\t%+.6f\n", i, w, calibration.MeanDriftVelocity(p[0], p[1], w), v)
	}
	return tw.Flush()
}

func loadMeasurements(path string) ([]calibration.Measurement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return calibration.LoadMeasurements(f)
}

func fit(cmd *cobra.Command, args []string) error {
	ms, err := loadMeasurements(args[0])
	if err != nil {
		return err
	}

	initial := calibration.Sample{Bmb: fitBmb, Cmb: fitCmb}
	if initial.Cmb <= 0 {
		for _, m := range ms {
			initial.Cmb = math.Max(initial.Cmb, math.Abs(m.Omega))
		}
	}

	logger.Info("fitting", "measurements", len(ms), "bmb0", initial.Bmb, "cmb0", initial.Cmb)
	res, err := calibration.Fit(ms, initial)
	if err != nil {
		return err
	}

	fmt.Printf("bmb:   %.6f\n", res.Bmb)
	fmt.Printf("cmb:   %.6f\n", res.Cmb)
	fmt.Printf("sigma: %.6f\n", res.Sigma)
	fmt.Printf("evaluations: %d (%s)\n", res.Evaluations, res.Status)
	return nil
}

func propagate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	samples, err := calibration.LoadSamples(f)
	f.Close()
	if err != nil {
		return err
	}

	var ms []calibration.Measurement
	if measurementsFile != "" {
		if ms, err = loadMeasurements(measurementsFile); err != nil {
			return err
		}
	}

	var ws []float64
	switch {
	case sweepMax > 0:
		ws = calibration.Grid(sweepMax, sweepPoints)
	case len(ms) > 0:
		ws = calibration.MeasurementGrid(ms, sweepPoints)
	default:
		hi := 0.0
		for _, s := range samples {
			hi = math.Max(hi, 1.5*math.Abs(s.Cmb))
		}
		ws = calibration.Grid(hi, sweepPoints)
	}

	logger.Info("propagating", "samples", len(samples), "frequencies", len(ws))
	band, err := calibration.Propagate(samples, ws, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return err
	}

	out, err := os.Create(plotOut)
	if err != nil {
		return err
	}
	if err := calibration.PlotBand(out, band, ms); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", plotOut)
	return nil
}
