package optim

import (
	"context"

	"github.com/san-kum/abfsim/internal/config"
	"github.com/san-kum/abfsim/internal/controllers"
	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/integrators"
	"github.com/san-kum/abfsim/internal/metrics"
	"github.com/san-kum/abfsim/internal/sim"
)

// Tunable lists the rollout parameters SetParam understands.
var Tunable = []string{"omega", "kp", "ki", "kd", "target"}

// SetParam sets one tunable rollout parameter.
func SetParam(rc *config.RolloutConfig, name string, v float64) error {
	switch name {
	case "omega":
		rc.Omega = v
	case "kp":
		rc.PID.Kp = v
	case "ki":
		rc.PID.Ki = v
	case "kd":
		rc.PID.Kd = v
	case "target":
		rc.PID.Target = v
	default:
		return dynamo.Configf("unknown parameter: %s (available: %v)", name, Tunable)
	}
	return nil
}

// RolloutObjective scores a parameter set by running cfg's rollout with it
// and reading metric from the default metrics. When maximize is set the
// metric is negated.
func RolloutObjective(cfg *config.Config, metric string, maximize bool) (Objective, error) {
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return nil, err
	}
	if _, err := integrators.NewSolver(cfg.Integrator); err != nil {
		return nil, err
	}
	found := false
	for _, m := range metrics.Default(cfg.Env.SuccessRadius) {
		found = found || m.Name() == metric
	}
	if !found {
		return nil, dynamo.Configf("unknown metric: %s", metric)
	}

	simCfg := sim.Config{Dt: cfg.Rollout.Dt, Duration: cfg.Rollout.Duration}
	x0 := cfg.InitialPositions()

	return func(ctx context.Context, params map[string]float64) (float64, error) {
		rc := cfg.Clone().Rollout
		for name, v := range params {
			if err := SetParam(&rc, name, v); err != nil {
				return 0, err
			}
		}
		ctrl, err := controllers.New(rc, cfg.Env.ActionLow, cfg.Env.ActionHigh)
		if err != nil {
			return 0, err
		}
		solver, _ := integrators.NewSolver(cfg.Integrator)

		s := sim.New(coeffs, solver, ctrl)
		for _, m := range metrics.Default(cfg.Env.SuccessRadius) {
			s.AddMetric(m)
		}
		result, err := s.Run(ctx, x0, simCfg)
		if err != nil {
			return 0, err
		}

		v := result.Metrics[metric]
		if maximize {
			v = -v
		}
		return v, nil
	}, nil
}
