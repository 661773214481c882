package env

import (
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
)

const (
	DefaultDt            = 1.0
	DefaultMaxSteps      = 500
	DefaultSuccessRadius = 1.0
	DefaultSuccessBonus  = 10.0
	DefaultBoxLength     = 100.0
	DefaultActionBound   = 5.0
	DefaultTimePenalty   = 1.0
)

// Config fixes the episode contract. Dt is the control interval charged
// by the reward; the solver subdivides it internally as needed.
type Config struct {
	Dt            float64 `yaml:"dt"`
	MaxSteps      int     `yaml:"max_steps"`
	SuccessRadius float64 `yaml:"success_radius"`
	SuccessBonus  float64 `yaml:"success_bonus"`
	BoxLength     float64 `yaml:"box_length"`
	ActionLow     float64 `yaml:"action_low"`
	ActionHigh    float64 `yaml:"action_high"`
	TimePenalty   float64 `yaml:"time_penalty"`
}

func DefaultConfig() Config {
	return Config{
		Dt:            DefaultDt,
		MaxSteps:      DefaultMaxSteps,
		SuccessRadius: DefaultSuccessRadius,
		SuccessBonus:  DefaultSuccessBonus,
		BoxLength:     DefaultBoxLength,
		ActionLow:     -DefaultActionBound,
		ActionHigh:    DefaultActionBound,
		TimePenalty:   DefaultTimePenalty,
	}
}

func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return dynamo.Configf("dt must be positive, got %g", c.Dt)
	}
	if c.MaxSteps <= 0 {
		return dynamo.Configf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if !(c.SuccessRadius >= 0) || math.IsInf(c.SuccessRadius, 0) {
		return dynamo.Configf("success_radius must be non-negative, got %g", c.SuccessRadius)
	}
	if !(c.BoxLength >= 0) || math.IsInf(c.BoxLength, 0) {
		return dynamo.Configf("box_length must be non-negative, got %g", c.BoxLength)
	}
	if !(c.ActionLow < c.ActionHigh) {
		return dynamo.Configf("action bounds must satisfy low < high, got [%g, %g]", c.ActionLow, c.ActionHigh)
	}
	return nil
}
