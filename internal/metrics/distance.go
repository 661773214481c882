package metrics

import (
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// positions returns the swimmer positions of a packed model state.
func positions(x dynamo.State) []float64 {
	n := (len(x) - 1) / 2
	if n <= 0 {
		return nil
	}
	return x[:n]
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// MeanDistance averages the largest distance to the origin over samples.
type MeanDistance struct {
	sum     float64
	samples int
}

func NewMeanDistance() *MeanDistance { return &MeanDistance{} }

func (m *MeanDistance) Name() string { return "mean_distance" }

func (m *MeanDistance) Observe(x dynamo.State, u dynamo.Control, t float64) {
	m.sum += maxAbs(positions(x))
	m.samples++
}

func (m *MeanDistance) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanDistance) Reset() {
	m.sum = 0
	m.samples = 0
}

// MaxExcursion is the largest distance any swimmer reached.
type MaxExcursion struct {
	max float64
}

func NewMaxExcursion() *MaxExcursion { return &MaxExcursion{} }

func (m *MaxExcursion) Name() string { return "max_excursion" }

func (m *MaxExcursion) Observe(x dynamo.State, u dynamo.Control, t float64) {
	m.max = math.Max(m.max, maxAbs(positions(x)))
}

func (m *MaxExcursion) Value() float64 { return m.max }

func (m *MaxExcursion) Reset() { m.max = 0 }

// Containment is the fraction of samples with every swimmer strictly
// inside radius.
type Containment struct {
	name    string
	radius  float64
	inside  int
	samples int
}

func NewContainment(radius float64) *Containment {
	return &Containment{
		name:   "containment",
		radius: radius,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(x dynamo.State, u dynamo.Control, t float64) {
	c.samples++
	if maxAbs(positions(x)) < c.radius {
		c.inside++
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.inside) / float64(c.samples)
}

func (c *Containment) Reset() {
	c.inside = 0
	c.samples = 0
}

// Default returns the metrics recorded for every rollout.
func Default(radius float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewControlEffort(),
		NewMeanDistance(),
		NewMaxExcursion(),
		NewContainment(radius),
	}
}
