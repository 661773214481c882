package controllers

import (
	"github.com/san-kum/abfsim/internal/config"
	"github.com/san-kum/abfsim/internal/dynamo"
)

// Names lists the controllers New understands.
var Names = []string{"constant", "schedule", "pid"}

// New builds the rollout controller named by rc.Controller. PID output is
// clamped to the action bounds of the environment.
func New(rc config.RolloutConfig, low, high float64) (dynamo.Controller, error) {
	switch rc.Controller {
	case "", "constant":
		return NewConstant(rc.Omega), nil
	case "schedule":
		segs := make([]Segment, len(rc.Schedule))
		for i, s := range rc.Schedule {
			segs[i] = Segment{Until: s.Until, Omega: s.Omega}
		}
		return NewSchedule(segs)
	case "pid":
		g := rc.PID
		return NewPID(g.Kp, g.Ki, g.Kd, g.Target, g.Swimmer, low, high), nil
	default:
		return nil, dynamo.Configf("unknown controller: %s (available: %v)", rc.Controller, Names)
	}
}
