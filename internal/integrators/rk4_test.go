package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/abfsim/internal/dynamo"
)

func TestRK4Accuracy(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestFixed_Subdivides(t *testing.T) {
	f := NewFixed(NewEuler(), 0.3)
	x, err := f.Integrate(&constantDrift{}, dynamo.State{0}, dynamo.Control{2}, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x[0]-2) > 1e-12 {
		t.Errorf("x = %v, want 2", x[0])
	}
}

func TestNewSolver(t *testing.T) {
	for _, name := range Names() {
		if _, err := NewSolver(name); err != nil {
			t.Errorf("NewSolver(%q): %v", name, err)
		}
	}
	if _, err := NewSolver("leapfrog"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}
