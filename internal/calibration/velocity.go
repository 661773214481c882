// Package calibration relates swimmer coefficients to measurable forward
// velocity: the time-averaged drift of a single swimmer under a constant
// rotating field, fitting coefficients to measured curves and propagating
// sampled coefficients into velocity bands.
package calibration

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/san-kum/abfsim/internal/swimmer"
)

const (
	quadNodes    = 16
	quadTol      = 1e-10
	quadMaxDepth = 40
)

// MeanDriftVelocity is the long-time average forward velocity of a swimmer
// with coefficients (bmb, cmb > 0) driven at frequency w. Below the
// step-out frequency cmb the swimmer phase-locks and V = bmb/cmb*w. Above
// it the phase lag slips periodically and V is the period average of
// bmb*sin(lag), evaluated by Gauss-Legendre quadrature. V is odd in w and
// continuous at w = cmb. Non-finite w or a non-positive cmb yield NaN.
func MeanDriftVelocity(bmb, cmb, w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || !(cmb > 0) || math.IsInf(cmb, 0) {
		return math.NaN()
	}
	if w < 0 {
		return -MeanDriftVelocity(bmb, cmb, -w)
	}
	if w <= cmb {
		return bmb / cmb * w
	}

	a1 := math.Sqrt(w*w - cmb*cmb)
	a2 := math.Atan(cmb / a1)

	// With u = a1*t/2 - a2 one period maps onto (-a2, pi-a2), and the
	// factor 1/T cancels against dt/du up to 1/pi.
	lag := func(u float64) float64 {
		return math.Sin(2 * math.Atan(cmb/w-a1/w*math.Tan(u)))
	}
	pole := math.Pi / 2
	integral := adaptive(lag, -a2, pole, 0) + adaptive(lag, pole, math.Pi-a2, 0)
	return bmb * integral / math.Pi
}

// adaptive bisects [a, b] until a fixed-order Legendre rule agrees with
// the sum over the two halves.
func adaptive(f func(float64) float64, a, b float64, depth int) float64 {
	whole := quad.Fixed(f, a, b, quadNodes, quad.Legendre{}, 1)
	mid := (a + b) / 2
	left := quad.Fixed(f, a, mid, quadNodes, quad.Legendre{}, 1)
	right := quad.Fixed(f, mid, b, quadNodes, quad.Legendre{}, 1)
	if math.IsNaN(whole) || math.IsNaN(left+right) {
		return math.NaN()
	}
	if depth >= quadMaxDepth || math.Abs(left+right-whole) <= quadTol*math.Max(1, math.Abs(whole)) {
		return left + right
	}
	return adaptive(f, a, mid, depth+1) + adaptive(f, mid, b, depth+1)
}

// Curve evaluates MeanDriftVelocity over ws.
func Curve(bmb, cmb float64, ws []float64) []float64 {
	vs := make([]float64, len(ws))
	for i, w := range ws {
		vs[i] = MeanDriftVelocity(bmb, cmb, w)
	}
	return vs
}

// IntegratedDriftVelocity measures the drift by running the full model for
// one swimmer from rest over horizon: V = x(horizon)/horizon. It converges
// to MeanDriftVelocity as the horizon grows.
func IntegratedDriftVelocity(bmb, cmb, w, horizon float64) (float64, error) {
	c, err := swimmer.NewCoefficients([]float64{bmb}, []float64{cmb})
	if err != nil {
		return 0, err
	}
	s, err := swimmer.Advance(swimmer.NewState([]float64{0}), c, w, horizon)
	if err != nil {
		return 0, err
	}
	return s.X[0] / horizon, nil
}
