package swimmer

import "github.com/san-kum/abfsim/internal/dynamo"

// State is the mutable part of the model: swimmer positions and
// orientations plus the single shared field orientation.
type State struct {
	X      []float64
	Theta  []float64
	ThetaB float64
}

// NewState places swimmers at x with zero orientation under a field at
// angle zero.
func NewState(x []float64) State {
	s := State{
		X:     make([]float64, len(x)),
		Theta: make([]float64, len(x)),
	}
	copy(s.X, x)
	return s
}

func (s State) Len() int { return len(s.X) }

func (s State) Clone() State {
	c := State{
		X:      make([]float64, len(s.X)),
		Theta:  make([]float64, len(s.Theta)),
		ThetaB: s.ThetaB,
	}
	copy(c.X, s.X)
	copy(c.Theta, s.Theta)
	return c
}

// Pack lays the state out as x..., theta..., thetaB for the solver.
func (s State) Pack() dynamo.State {
	n := len(s.X)
	y := make(dynamo.State, 2*n+1)
	copy(y[:n], s.X)
	copy(y[n:2*n], s.Theta)
	y[2*n] = s.ThetaB
	return y
}

// Unpack is the inverse of Pack.
func Unpack(y dynamo.State) (State, error) {
	if len(y)%2 != 1 {
		return State{}, dynamo.ErrDimensionMismatch
	}
	n := len(y) / 2
	s := State{
		X:      make([]float64, n),
		Theta:  make([]float64, n),
		ThetaB: y[2*n],
	}
	copy(s.X, y[:n])
	copy(s.Theta, y[n:2*n])
	return s, nil
}

func (s State) check(c *Coefficients) error {
	if len(s.X) != len(s.Theta) {
		return dynamo.Configf("state has %d positions but %d orientations", len(s.X), len(s.Theta))
	}
	if len(s.X) != c.Len() {
		return dynamo.Configf("state has %d swimmers, coefficients have %d", len(s.X), c.Len())
	}
	return nil
}
