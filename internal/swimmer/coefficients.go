package swimmer

import (
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// Coefficients holds the per-swimmer mobility pairs of the reduced model.
// bmb couples the field phase mismatch to translation, cmb to rotation; cmb
// is also the swimmer's critical (step-out) frequency. A Coefficients value
// is never modified after construction and may be shared across episodes
// and goroutines.
type Coefficients struct {
	bmb []float64
	cmb []float64
}

func NewCoefficients(bmb, cmb []float64) (*Coefficients, error) {
	if len(bmb) == 0 {
		return nil, dynamo.Configf("at least one swimmer is required")
	}
	if len(bmb) != len(cmb) {
		return nil, dynamo.Configf("coefficient length mismatch: %d bmb, %d cmb", len(bmb), len(cmb))
	}
	for i := range bmb {
		if !finite(bmb[i]) || !finite(cmb[i]) {
			return nil, dynamo.Configf("swimmer %d: non-finite coefficient (bmb=%g, cmb=%g)", i, bmb[i], cmb[i])
		}
	}

	c := &Coefficients{
		bmb: make([]float64, len(bmb)),
		cmb: make([]float64, len(cmb)),
	}
	copy(c.bmb, bmb)
	copy(c.cmb, cmb)
	return c, nil
}

func (c *Coefficients) Len() int { return len(c.bmb) }

func (c *Coefficients) Bmb(i int) float64 { return c.bmb[i] }
func (c *Coefficients) Cmb(i int) float64 { return c.cmb[i] }

func (c *Coefficients) CriticalFrequency(i int) float64 { return c.cmb[i] }

// Pairs returns a copy of the (bmb, cmb) pairs.
func (c *Coefficients) Pairs() [][2]float64 {
	out := make([][2]float64, len(c.bmb))
	for i := range c.bmb {
		out[i] = [2]float64{c.bmb[i], c.cmb[i]}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
