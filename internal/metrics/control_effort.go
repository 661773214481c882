package metrics

import (
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// ControlEffort is the mean absolute drive frequency over samples.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	c.samples++
	if len(u) == 0 {
		return
	}
	c.sum += math.Abs(u[0])
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	*c = ControlEffort{}
}
