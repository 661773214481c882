package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/swimmer"
)

// Simulator runs open- or closed-loop rollouts of the swimmer model
// outside of the episodic environment: no rewards, no termination, every
// sampling interval recorded.
type Simulator struct {
	coeffs     *swimmer.Coefficients
	solver     dynamo.Solver
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(coeffs *swimmer.Coefficients, solver dynamo.Solver, controller dynamo.Controller) *Simulator {
	return &Simulator{
		coeffs:     coeffs,
		solver:     solver,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run integrates from swimmers at x0 (zero orientation, field at angle 0)
// for cfg.Duration. On an integration error the records up to the failure
// are returned with the error.
func (s *Simulator) Run(ctx context.Context, x0 []float64, cfg Config) (*Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		Records: make([]Record, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	err := s.RunWithCallback(ctx, x0, cfg, func(rec Record) bool {
		result.Records = append(result.Records, rec)
		return true
	})

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, err
}

// RunWithCallback streams records to fn until the duration elapses or fn
// returns false. Metrics and observers see every sampled state together
// with the control applied from it.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 []float64, cfg Config, fn func(Record) bool) error {
	if err := s.validate(x0, cfg); err != nil {
		return err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	state := swimmer.NewState(x0)
	t := 0.0

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		y := state.Pack()
		u := s.controller.Compute(y, t)
		if len(u) != 1 {
			return dynamo.Configf("controller returned %d components, want 1", len(u))
		}

		for _, m := range s.metrics {
			m.Observe(y, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(y, u, t)
		}

		if !fn(s.record(state, u[0], t)) || i == steps {
			return nil
		}

		next, err := swimmer.AdvanceWith(s.solver, state, s.coeffs, u[0], cfg.Dt)
		if err != nil {
			return fmt.Errorf("rollout at t=%.4g: %w", t, err)
		}
		state = next
		t = float64(i+1) * cfg.Dt
	}
}

func (s *Simulator) record(state swimmer.State, omega, t float64) Record {
	c := state.Clone()
	return Record{
		Time:            t,
		FieldAngle:      c.ThetaB,
		Omega:           omega,
		X:               c.X,
		Theta:           c.Theta,
		AngularVelocity: swimmer.AngularVelocities(state, s.coeffs),
	}
}

func (s *Simulator) validate(x0 []float64, cfg Config) error {
	if cfg.Dt <= 0 {
		return dynamo.Configf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return dynamo.Configf("duration must be positive, got %f", cfg.Duration)
	}
	if len(x0) != s.coeffs.Len() {
		return dynamo.Configf("%d initial positions for %d swimmers", len(x0), s.coeffs.Len())
	}
	return nil
}
