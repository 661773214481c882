package integrators

import (
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// Fixed turns a single-step integrator into a Solver by subdividing the
// interval into equal substeps no longer than H.
type Fixed struct {
	Integrator dynamo.Integrator
	H          float64
}

func NewFixed(integ dynamo.Integrator, h float64) *Fixed {
	return &Fixed{Integrator: integ, H: h}
}

func (f *Fixed) Integrate(dyn dynamo.System, x dynamo.State, u dynamo.Control, t0, t1 float64) (dynamo.State, error) {
	span := t1 - t0
	if span <= 0 || f.H <= 0 {
		return nil, dynamo.Configf("fixed step: need t1 > t0 and H > 0 (span=%g, H=%g)", span, f.H)
	}

	n := int(math.Ceil(span / f.H))
	h := span / float64(n)

	xs := x.Clone()
	for i := 0; i < n; i++ {
		t := t0 + float64(i)*h
		xs = f.Integrator.Step(dyn, xs, u, t, h)
		if !xs.IsValid() {
			return nil, &dynamo.IntegrationError{Steps: i + 1, Time: t + h, Wrapped: dynamo.ErrInvalidState}
		}
	}
	return xs, nil
}
