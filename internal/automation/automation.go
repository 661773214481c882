package automation

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/abfsim/internal/config"
	"github.com/san-kum/abfsim/internal/controllers"
	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/integrators"
	"github.com/san-kum/abfsim/internal/metrics"
	"github.com/san-kum/abfsim/internal/sim"
)

// Scenario is a scripted sequence of rollouts over one swimmer
// population.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep overrides the rollout settings of the base config for one
// rollout. Continue starts the swimmers where the previous step left them.
type ScenarioStep struct {
	Name       string                `yaml:"name"`
	Controller string                `yaml:"controller"`
	Omega      *float64              `yaml:"omega,omitempty"`
	Schedule   []config.ScheduleStep `yaml:"schedule,omitempty"`
	PID        *config.PIDConfig     `yaml:"pid,omitempty"`
	Duration   float64               `yaml:"duration"`
	Dt         float64               `yaml:"dt"`
	Positions  []float64             `yaml:"positions,omitempty,flow"`
	Continue   bool                  `yaml:"continue"`
}

// StepResult is the rollout of one scenario step.
type StepResult struct {
	Name   string
	Start  []float64
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, dynamo.Configf("scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

// rollout applies step on top of base.
func (s ScenarioStep) rollout(base config.RolloutConfig) config.RolloutConfig {
	rc := base
	if s.Controller != "" {
		rc.Controller = s.Controller
	}
	if s.Omega != nil {
		rc.Omega = *s.Omega
	}
	if len(s.Schedule) > 0 {
		rc.Schedule = s.Schedule
	}
	if s.PID != nil {
		rc.PID = *s.PID
	}
	if s.Duration > 0 {
		rc.Duration = s.Duration
	}
	if s.Dt > 0 {
		rc.Dt = s.Dt
	}
	return rc
}

// RunScenario executes all steps in order, logging progress to progress
// when it is non-nil. Results of completed steps are returned with the
// first error.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, progress io.Writer) ([]StepResult, error) {
	coeffs, err := base.Coefficients()
	if err != nil {
		return nil, err
	}

	results := make([]StepResult, 0, len(scenario.Steps))
	x := base.InitialPositions()

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		if progress != nil {
			fmt.Fprintf(progress, "Running step %d/%d: %s\n", i+1, len(scenario.Steps), name)
		}

		switch {
		case step.Continue && len(results) > 0:
			x = append([]float64(nil), results[len(results)-1].Result.Final().X...)
		case len(step.Positions) > 0:
			if len(step.Positions) != coeffs.Len() {
				return results, fmt.Errorf("step %d: %w", i+1,
					dynamo.Configf("expected %d positions, got %d", coeffs.Len(), len(step.Positions)))
			}
			x = append([]float64(nil), step.Positions...)
		default:
			x = base.InitialPositions()
		}

		rc := step.rollout(base.Rollout)
		solver, err := integrators.NewSolver(base.Integrator)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		ctrl, err := controllers.New(rc, base.Env.ActionLow, base.Env.ActionHigh)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		s := sim.New(coeffs, solver, ctrl)
		for _, m := range metrics.Default(base.Env.SuccessRadius) {
			s.AddMetric(m)
		}
		result, err := s.Run(ctx, x, sim.Config{Dt: rc.Dt, Duration: rc.Duration})
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Name: name, Start: x, Result: result})
	}

	return results, nil
}
