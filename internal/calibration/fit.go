package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// FitResult is a least-squares estimate of the coefficients. Sigma is the
// RMS residual.
type FitResult struct {
	Sample
	Evaluations int
	Status      string
}

// Fit estimates (bmb, cmb) from measurements by minimizing the squared
// residuals with Nelder-Mead, starting from initial.
func Fit(ms []Measurement, initial Sample) (FitResult, error) {
	if len(ms) == 0 {
		return FitResult{}, dynamo.Configf("no measurements to fit")
	}
	if !(initial.Cmb > 0) {
		return FitResult{}, dynamo.Configf("initial cmb must be positive, got %g", initial.Cmb)
	}

	sse := func(x []float64) float64 {
		bmb, cmb := x[0], x[1]
		if !(cmb > 0) {
			return math.Inf(1)
		}
		var s float64
		for _, m := range ms {
			r := MeanDriftVelocity(bmb, cmb, m.Omega) - m.V
			s += r * r
		}
		return s
	}

	settings := &optimize.Settings{
		MajorIterations: 2000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 200,
		},
	}
	res, err := optimize.Minimize(optimize.Problem{Func: sse}, []float64{initial.Bmb, initial.Cmb}, settings, &optimize.NelderMead{})
	if err != nil {
		return FitResult{}, fmt.Errorf("fit: %w", err)
	}

	return FitResult{
		Sample: Sample{
			Bmb:   res.X[0],
			Cmb:   res.X[1],
			Sigma: math.Sqrt(res.F / float64(len(ms))),
		},
		Evaluations: res.Stats.FuncEvaluations,
		Status:      res.Status.String(),
	}, nil
}
