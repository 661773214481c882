package analysis

import (
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/swimmer"
)

// LyapunovExponent estimates the growth rate of a perturbation of
// x0[idx[0]] measured over the components idx, renormalizing the
// separation after every interval dt. Restricting idx lets neutral
// directions such as translation be ignored.
func LyapunovExponent(
	sys dynamo.System,
	solver dynamo.Solver,
	x0 dynamo.State,
	u dynamo.Control,
	idx []int,
	dt, duration float64,
	perturbation float64,
) (float64, error) {
	if len(idx) == 0 || perturbation <= 0 || dt <= 0 {
		return 0, dynamo.Configf("lyapunov: need components, positive perturbation and dt")
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[idx[0]] += perturbation
	d0 := perturbation

	t := 0.0
	sumLog := 0.0
	count := 0

	for t < duration {
		var err error
		if x, err = solver.Integrate(sys, x, u, t, t+dt); err != nil {
			return 0, err
		}
		if xp, err = solver.Integrate(sys, xp, u, t, t+dt); err != nil {
			return 0, err
		}
		t += dt

		sep := 0.0
		for _, i := range idx {
			diff := xp[i] - x[i]
			sep += diff * diff
		}
		sep = math.Sqrt(sep)
		if sep == 0 {
			break
		}

		sumLog += math.Log(sep / d0)
		count++

		scale := d0 / sep
		for _, i := range idx {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	if count == 0 {
		return 0, nil
	}
	return sumLog / (float64(count) * dt), nil
}

// LagExponent is the Lyapunov exponent of swimmer i's phase lag under
// drive frequency w. Below step-out it starts from the stable locked lag
// and approaches -sqrt(cmb^2 - w^2); above step-out it is zero.
func LagExponent(c *swimmer.Coefficients, i int, w, dt, duration float64, solver dynamo.Solver) (float64, error) {
	if i < 0 || i >= c.Len() {
		return 0, dynamo.Configf("swimmer %d out of range", i)
	}
	n := c.Len()
	s := swimmer.NewState(make([]float64, n))
	if cmb := c.Cmb(i); math.Abs(w) <= math.Abs(cmb) && cmb != 0 {
		s.Theta[i] = math.Pi - math.Asin(w/cmb)
	}
	return LyapunovExponent(swimmer.NewSystem(c), solver, s.Pack(), dynamo.Control{w}, []int{n + i}, dt, duration, 1e-5)
}
