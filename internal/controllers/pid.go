package controllers

import (
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// PID steers one swimmer's position toward Target by choosing the drive
// frequency. The output is clamped to [Low, High]; keeping |w| below the
// swimmer's step-out frequency keeps the response monotone.
type PID struct {
	Kp      float64
	Ki      float64
	Kd      float64
	Target  float64
	Swimmer int
	Low     float64
	High    float64

	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target float64, swimmer int, low, high float64) *PID {
	return &PID{
		Kp:      kp,
		Ki:      ki,
		Kd:      kd,
		Target:  target,
		Swimmer: swimmer,
		Low:     low,
		High:    high,
		first:   true,
	}
}

func (p *PID) Compute(x dynamo.State, t float64) dynamo.Control {
	n := (len(x) - 1) / 2
	if p.Swimmer < 0 || p.Swimmer >= n {
		return dynamo.Control{0}
	}

	err := p.Target - x[p.Swimmer]

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return p.clamp(p.Kp * err)
	}

	dt := t - p.prevT
	if dt > 0 {
		p.integral += err * dt
		derivative := (err - p.prevErr) / dt

		u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative

		p.prevErr = err
		p.prevT = t

		return p.clamp(u)
	}
	return p.clamp(p.Kp * err)
}

func (p *PID) clamp(u float64) dynamo.Control {
	return dynamo.Control{math.Max(p.Low, math.Min(p.High, u))}
}
