package calibration

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/abfsim/internal/dynamo"
)

const (
	LowerQuantile = 0.05
	UpperQuantile = 0.95
)

// Band summarizes propagated velocity curves at each frequency.
type Band struct {
	Omega []float64
	Mean  []float64
	Lo    []float64
	Hi    []float64
}

// Grid returns n evenly spaced frequencies on [0, max].
func Grid(max float64, n int) []float64 {
	if n < 2 {
		return []float64{max}
	}
	return floats.Span(make([]float64, n), 0, max)
}

// MeasurementGrid spans 20% past the highest measured frequency.
func MeasurementGrid(ms []Measurement, n int) []float64 {
	max := 0.0
	for _, m := range ms {
		if m.Omega > max {
			max = m.Omega
		}
	}
	return Grid(1.2*max, n)
}

// Propagate evaluates the velocity curve of every sample over ws, adds
// Gaussian noise with the sample's sigma and reduces the curves to the
// mean and the 5th and 95th percentiles. Samples are evaluated in
// parallel; the result depends only on rng's state.
func Propagate(samples []Sample, ws []float64, rng *rand.Rand) (Band, error) {
	if len(samples) == 0 {
		return Band{}, dynamo.Configf("no samples to propagate")
	}
	if len(ws) == 0 {
		return Band{}, dynamo.Configf("no frequencies to evaluate")
	}
	if rng == nil {
		return Band{}, dynamo.Configf("random source is required")
	}

	for i, s := range samples {
		if err := s.Validate(); err != nil {
			return Band{}, fmt.Errorf("sample %d: %w", i, err)
		}
	}

	seeds := make([]int64, len(samples))
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	curves := make([][]float64, len(samples))
	dynamo.ParallelFor(len(samples), 4, func(start, end int) {
		for i := start; i < end; i++ {
			s := samples[i]
			noise := rand.New(rand.NewSource(seeds[i]))
			c := Curve(s.Bmb, s.Cmb, ws)
			for j := range c {
				c[j] += s.Sigma * noise.NormFloat64()
			}
			curves[i] = c
		}
	})

	band := Band{
		Omega: append([]float64(nil), ws...),
		Mean:  make([]float64, len(ws)),
		Lo:    make([]float64, len(ws)),
		Hi:    make([]float64, len(ws)),
	}
	col := make([]float64, len(samples))
	for j := range ws {
		for i := range curves {
			col[i] = curves[i][j]
		}
		sort.Float64s(col)
		band.Mean[j] = stat.Mean(col, nil)
		band.Lo[j] = stat.Quantile(LowerQuantile, stat.LinInterp, col, nil)
		band.Hi[j] = stat.Quantile(UpperQuantile, stat.LinInterp, col, nil)
	}
	return band, nil
}
