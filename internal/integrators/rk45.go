package integrators

import (
	"errors"
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// ErrStepBudget is returned when Integrate exhausts MaxSteps trial steps.
var ErrStepBudget = errors.New("integrators: step budget exhausted")

// RK45 is the Dormand-Prince 5(4) embedded pair. Integrate drives it with
// local error control: a trial step is accepted when every component's
// error is within AbsTol + RelTol*|x|.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	RelTol   float64
	AbsTol   float64
	MaxSteps int
	MinStep  float64
	// InitialStep seeds the first trial step; zero means the whole interval.
	InitialStep float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		RelTol:   1e-8,
		AbsTol:   1e-10,
		MaxSteps: 100000,
		MinStep:  1e-12,
	}
}

func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	newX, _, _ := r.StepAdaptive(dyn, x, u, t, dt)
	return newX
}

// StepAdaptive takes one trial step of size dt and returns the candidate
// state, the normalized error (accept when <= 1) and the proposed next dt.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, float64, float64) {
	n := len(x)

	k1 := dyn.Derive(x, u, t)

	x2 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k1[i]
	}
	k2 := dyn.Derive(x2, u, t+a2*dt)

	x3 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := dyn.Derive(x3, u, t+a3*dt)

	x4 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := dyn.Derive(x4, u, t+a4*dt)

	x5 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := dyn.Derive(x5, u, t+a5*dt)

	x6 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := dyn.Derive(x6, u, t+dt)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := dyn.Derive(xNew, u, t+dt)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := r.AbsTol + r.RelTol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}
	if !xNew.IsValid() {
		errMax = math.Inf(1)
	}

	var dtNew float64
	switch {
	case math.IsInf(errMax, 1) || math.IsNaN(errMax):
		dtNew = dt * r.minScale
	case errMax > 1:
		dtNew = dt * math.Max(r.minScale, r.safety*math.Pow(errMax, -0.25))
	case errMax > 0:
		dtNew = dt * math.Min(r.maxScale, r.safety*math.Pow(errMax, -0.2))
	default:
		dtNew = dt * r.maxScale
	}

	return xNew, errMax, dtNew
}

// Integrate advances x from t0 to t1, landing exactly on t1.
func (r *RK45) Integrate(dyn dynamo.System, x dynamo.State, u dynamo.Control, t0, t1 float64) (dynamo.State, error) {
	span := t1 - t0
	if span <= 0 {
		return nil, dynamo.Configf("rk45: need t1 > t0, got [%g, %g]", t0, t1)
	}

	h := span
	if r.InitialStep > 0 && r.InitialStep < span {
		h = r.InitialStep
	}

	xs := x.Clone()
	t := t0
	for steps := 1; ; steps++ {
		if steps > r.MaxSteps {
			return nil, &dynamo.IntegrationError{Steps: steps - 1, Time: t, Wrapped: ErrStepBudget}
		}

		last := false
		if t+h >= t1 {
			h = t1 - t
			last = true
		}

		xNew, errNorm, hNew := r.StepAdaptive(dyn, xs, u, t, h)
		if errNorm <= 1 {
			xs = xNew
			if last {
				return xs, nil
			}
			t += h
		}

		if hNew < r.MinStep {
			return nil, &dynamo.IntegrationError{Steps: steps, Time: t, Wrapped: dynamo.ErrStepTooSmall}
		}
		h = hNew
	}
}
