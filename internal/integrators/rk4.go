package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// RK4 is the classical fourth-order Runge-Kutta step. Stage buffers are
// reused between calls, so an RK4 must not be shared between goroutines.
type RK4 struct {
	k     [4]dynamo.State
	stage dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.stage) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.ensureScratch(len(x))
	h := dt / 2

	copy(r.k[0], dyn.Derive(x, u, t))
	floats.AddScaledTo(r.stage, x, h, r.k[0])
	copy(r.k[1], dyn.Derive(r.stage, u, t+h))
	floats.AddScaledTo(r.stage, x, h, r.k[1])
	copy(r.k[2], dyn.Derive(r.stage, u, t+h))
	floats.AddScaledTo(r.stage, x, dt, r.k[2])
	copy(r.k[3], dyn.Derive(r.stage, u, t+dt))

	out := x.Clone()
	floats.AddScaled(out, dt/6, r.k[0])
	floats.AddScaled(out, dt/3, r.k[1])
	floats.AddScaled(out, dt/3, r.k[2])
	floats.AddScaled(out, dt/6, r.k[3])
	return out
}
