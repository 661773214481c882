package analysis

import (
	"context"
	"math"
	"strings"

	"github.com/san-kum/abfsim/internal/controllers"
	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/sim"
	"github.com/san-kum/abfsim/internal/swimmer"
)

// SweepPoint is the measured response of every swimmer at one drive
// frequency.
type SweepPoint struct {
	Omega  float64
	Drift  []float64
	Locked []bool
}

// lockTolerance bounds the relative spread of a swimmer's angular velocity
// that still counts as phase-locked.
const lockTolerance = 1e-3

// FrequencySweep measures, for each frequency, the drift of every swimmer
// over record after letting transients settle for transient, and whether
// the swimmer stayed phase-locked. Frequencies are evaluated in parallel.
func FrequencySweep(
	ctx context.Context,
	c *swimmer.Coefficients,
	solver func() dynamo.Solver,
	ws []float64,
	dt, transient, record float64,
) ([]SweepPoint, error) {
	points := make([]SweepPoint, len(ws))
	errs := make([]error, len(ws))

	dynamo.ParallelFor(len(ws), 1, func(start, end int) {
		for k := start; k < end; k++ {
			points[k], errs[k] = sweepOne(ctx, c, solver(), ws[k], dt, transient, record)
		}
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return points, nil
}

func sweepOne(ctx context.Context, c *swimmer.Coefficients, solver dynamo.Solver, w, dt, transient, record float64) (SweepPoint, error) {
	n := c.Len()
	res, err := sim.New(c, solver, controllers.NewConstant(w)).
		Run(ctx, make([]float64, n), sim.Config{Dt: dt, Duration: transient + record})
	if err != nil {
		return SweepPoint{}, err
	}

	first := int(math.Round(transient / dt))
	if first >= len(res.Records) {
		first = len(res.Records) - 1
	}
	start, final := res.Records[first], res.Final()
	span := final.Time - start.Time

	p := SweepPoint{Omega: w, Drift: make([]float64, n), Locked: make([]bool, n)}
	for i := 0; i < n; i++ {
		if span > 0 {
			p.Drift[i] = (final.X[i] - start.X[i]) / span
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, rec := range res.Records[first:] {
			lo = math.Min(lo, rec.AngularVelocity[i])
			hi = math.Max(hi, rec.AngularVelocity[i])
		}
		p.Locked[i] = hi-lo <= lockTolerance*math.Max(1, math.Abs(w))
	}
	return p, nil
}

// SweepToASCII plots every swimmer's drift against frequency. Locked
// points are drawn as '•', slipping points as '·'.
func SweepToASCII(data []SweepPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	foundFirst := false
	for _, p := range data {
		for _, v := range p.Drift {
			if !foundFirst {
				minVal, maxVal = v, v
				foundFirst = true
			} else {
				minVal = math.Min(minVal, v)
				maxVal = math.Max(maxVal, v)
			}
		}
	}
	if !foundFirst {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for i, p := range data {
		col := i * width / len(data)
		if col >= width {
			col = width - 1
		}
		for j, v := range p.Drift {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row < 0 || row >= height {
				continue
			}
			if p.Locked[j] {
				canvas[row][col] = '•'
			} else if canvas[row][col] == ' ' {
				canvas[row][col] = '·'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
