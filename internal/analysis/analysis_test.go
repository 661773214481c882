package analysis

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/abfsim/internal/controllers"
	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/integrators"
	"github.com/san-kum/abfsim/internal/sim"
	"github.com/san-kum/abfsim/internal/swimmer"
)

func coefficients(t *testing.T, bmb, cmb []float64) *swimmer.Coefficients {
	t.Helper()
	c, err := swimmer.NewCoefficients(bmb, cmb)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func rollout(t *testing.T, c *swimmer.Coefficients, w, dt, duration float64) *sim.Result {
	t.Helper()
	res, err := sim.New(c, integrators.NewRK45(), controllers.NewConstant(w)).
		Run(context.Background(), make([]float64, c.Len()), sim.Config{Dt: dt, Duration: duration})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestDominantFrequency_Sine(t *testing.T) {
	const dt, f = 0.01, 3.0
	data := make([]float64, 1000)
	for i := range data {
		data[i] = 2 + math.Sin(2*math.Pi*f*float64(i)*dt)
	}
	if got := DominantFrequency(data, dt); math.Abs(got-f) > 0.1 {
		t.Errorf("expected %g, got %g", f, got)
	}
}

func TestDominantFrequency_Constant(t *testing.T) {
	if got := DominantFrequency([]float64{1, 1, 1, 1}, 0.1); got != 0 {
		t.Errorf("expected 0 for a constant signal, got %g", got)
	}
}

func TestDominantFrequency_SlipRate(t *testing.T) {
	const bmb, cmb, w = 1.0, 1.0, 2.0
	const dt = 0.05
	res := rollout(t, coefficients(t, []float64{bmb}, []float64{cmb}), w, dt, 200)

	want := math.Sqrt(w*w-cmb*cmb) / (2 * math.Pi)
	got := DominantFrequency(res.AngularVelocities(0), dt)
	if math.Abs(got-want) > 0.01 {
		t.Errorf("slip frequency %g, want %g", got, want)
	}
}

func TestLagExponent(t *testing.T) {
	c := coefficients(t, []float64{1}, []float64{2})

	locked, err := LagExponent(c, 0, 1, 0.1, 50, integrators.NewRK45())
	if err != nil {
		t.Fatal(err)
	}
	if want := -math.Sqrt(3); math.Abs(locked-want) > 0.05 {
		t.Errorf("locked exponent %g, want %g", locked, want)
	}

	slipping, err := LagExponent(c, 0, 4, 0.1, 500, integrators.NewRK45())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(slipping) > 0.05 {
		t.Errorf("slipping exponent %g, want ~0", slipping)
	}
}

func TestLagExponent_Invalid(t *testing.T) {
	c := coefficients(t, []float64{1}, []float64{2})
	if _, err := LagExponent(c, 3, 1, 0.1, 1, integrators.NewRK45()); err == nil {
		t.Error("expected error for out-of-range swimmer")
	}
}

func TestFrequencySweep(t *testing.T) {
	c := coefficients(t, []float64{1, 1}, []float64{1, 2})
	ws := []float64{0.5, 1.5, 3}

	points, err := FrequencySweep(context.Background(), c,
		func() dynamo.Solver { return integrators.NewRK45() }, ws, 0.1, 40, 400)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != len(ws) {
		t.Fatalf("expected %d points, got %d", len(ws), len(points))
	}

	wantLocked := [][]bool{{true, true}, {false, true}, {false, false}}
	for k, p := range points {
		if p.Omega != ws[k] {
			t.Errorf("point %d has omega %g", k, p.Omega)
		}
		for i := range p.Locked {
			if p.Locked[i] != wantLocked[k][i] {
				t.Errorf("w=%g swimmer %d: locked=%v", p.Omega, i, p.Locked[i])
			}
		}
	}

	if d := points[0].Drift[1]; math.Abs(d-0.25) > 1e-3 {
		t.Errorf("locked drift %g, want 0.25", d)
	}
	want := 1.5 - math.Sqrt(1.5*1.5-1)
	if d := points[1].Drift[0]; math.Abs(d-want) > 0.02 {
		t.Errorf("slipping drift %g, want %g", d, want)
	}

	plot := SweepToASCII(points, 30, 8)
	if strings.Count(plot, "\n") != 8 || !strings.ContainsRune(plot, '•') || !strings.ContainsRune(plot, '·') {
		t.Errorf("unexpected sweep plot:\n%s", plot)
	}
}

func TestLag(t *testing.T) {
	tests := []struct {
		theta, thetaB, want float64
	}{
		{0, 0, 0},
		{1, 0, 1},
		{0, 1, -1},
		{7, 0, 7 - 2*math.Pi},
		{math.Pi, 0, math.Pi},
		{-math.Pi, 0, math.Pi},
	}
	for _, tt := range tests {
		if got := Lag(tt.theta, tt.thetaB); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Lag(%g, %g) = %g, want %g", tt.theta, tt.thetaB, got, tt.want)
		}
	}
}

func TestPhasePortrait(t *testing.T) {
	c := coefficients(t, []float64{1}, []float64{2})
	res := rollout(t, c, 1, 0.1, 60)

	portrait := GeneratePhasePortrait(res, 0)
	if portrait == nil || len(portrait.Points) != len(res.Records) {
		t.Fatal("expected one point per record")
	}
	last := portrait.Points[len(portrait.Points)-1]
	if math.Abs(last.Y-1) > 1e-6 || math.Abs(math.Sin(last.X)-0.5) > 1e-6 {
		t.Errorf("expected locked lag with sin=0.5 and velocity 1, got %+v", last)
	}

	if GeneratePhasePortrait(res, 5) != nil {
		t.Error("expected nil for out-of-range swimmer")
	}
	if out := PhasePortraitToASCII(portrait, 20, 10); strings.Count(out, "\n") != 10 {
		t.Errorf("unexpected portrait size:\n%s", out)
	}
}

func TestStroboscopicSection(t *testing.T) {
	c := coefficients(t, []float64{1}, []float64{2})
	w := 1.0
	res := rollout(t, c, w, 0.05, 20*math.Pi+1)

	section := GenerateStroboscopicSection(res, 0)
	if section == nil || len(section.Points) != 10 {
		t.Fatalf("expected 10 revolutions, got %v", section)
	}

	// Locked: the swimmer advances by the same distance each revolution.
	a, b := section.Points[8], section.Points[9]
	if want := 2 * math.Pi * 0.5; math.Abs((b.X-a.X)-want) > 1e-3 {
		t.Errorf("advance per revolution %g, want %g", b.X-a.X, want)
	}
	if StroboscopicSectionToASCII(&StroboscopicSection{}, 10, 5) != "no revolutions completed" {
		t.Error("expected placeholder for empty section")
	}
}
