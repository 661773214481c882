package controllers

import "github.com/san-kum/abfsim/internal/dynamo"

// Constant drives the field at a fixed frequency.
type Constant struct {
	Omega float64
}

func NewConstant(omega float64) *Constant {
	return &Constant{Omega: omega}
}

func (c *Constant) Compute(x dynamo.State, t float64) dynamo.Control {
	return dynamo.Control{c.Omega}
}
