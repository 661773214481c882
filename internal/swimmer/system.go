package swimmer

import (
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// System is the right-hand side of the reduced model:
//
//	dx_i/dt  = bmb_i sin(theta_i - thetaB)
//	dtheta_i = cmb_i sin(theta_i - thetaB)
//	dthetaB  = w
//
// The drive frequency w is the single control component.
type System struct {
	coeffs *Coefficients
}

func NewSystem(c *Coefficients) *System {
	return &System{coeffs: c}
}

func (s *System) StateDim() int   { return 2*s.coeffs.Len() + 1 }
func (s *System) ControlDim() int { return 1 }

func (s *System) Derive(y dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	n := s.coeffs.Len()
	dy := make(dynamo.State, 2*n+1)
	thetaB := y[2*n]
	for i := 0; i < n; i++ {
		torque := math.Sin(y[n+i] - thetaB)
		dy[i] = s.coeffs.bmb[i] * torque
		dy[n+i] = s.coeffs.cmb[i] * torque
	}
	if len(u) > 0 {
		dy[2*n] = u[0]
	}
	return dy
}

// AngularVelocities evaluates dtheta_i/dt at s.
func AngularVelocities(s State, c *Coefficients) []float64 {
	out := make([]float64, len(s.Theta))
	for i, th := range s.Theta {
		out[i] = c.cmb[i] * math.Sin(th-s.ThetaB)
	}
	return out
}
