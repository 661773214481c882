package swimmer

import (
	"fmt"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/integrators"
)

var defaultSolver dynamo.Solver = integrators.NewRK45()

// Advance integrates the model over one control interval of length dt
// under constant drive frequency w with the default adaptive solver.
func Advance(s State, c *Coefficients, w, dt float64) (State, error) {
	return AdvanceWith(defaultSolver, s, c, w, dt)
}

// AdvanceWith is Advance with an explicit solver. The input state is not
// modified. The field angle is advanced analytically by w*dt since its
// equation does not couple to the swimmers.
func AdvanceWith(solver dynamo.Solver, s State, c *Coefficients, w, dt float64) (State, error) {
	if !(dt > 0) || !finite(dt) {
		return State{}, dynamo.Configf("dt must be positive, got %g", dt)
	}
	if !finite(w) {
		return State{}, dynamo.Configf("drive frequency must be finite, got %g", w)
	}
	if err := s.check(c); err != nil {
		return State{}, err
	}

	y, err := solver.Integrate(NewSystem(c), s.Pack(), dynamo.Control{w}, 0, dt)
	if err != nil {
		return State{}, fmt.Errorf("advance w=%g dt=%g: %w", w, dt, err)
	}

	next, err := Unpack(y)
	if err != nil {
		return State{}, err
	}
	next.ThetaB = s.ThetaB + w*dt
	return next, nil
}
