package integrators

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// Euler is the explicit first-order step. It is kept as the reference
// solver for convergence comparisons.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	out := make(dynamo.State, len(x))
	floats.AddScaledTo(out, x, dt, dyn.Derive(x, u, t))
	return out
}
