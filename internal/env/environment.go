package env

import (
	"math"
	"math/rand"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/integrators"
	"github.com/san-kum/abfsim/internal/swimmer"
)

// Environment is the episodic control task: drive every swimmer into the
// ball of radius SuccessRadius around the origin with a single rotating
// field before MaxSteps control intervals elapse.
//
// An Environment owns its swimmer state and reward bookkeeping; the
// coefficients are shared read-only. It is not safe for concurrent use.
type Environment struct {
	cfg    Config
	coeffs *swimmer.Coefficients
	solver dynamo.Solver
	rng    *rand.Rand

	state    swimmer.State
	prevDist []float64
	steps    int
	status   Status

	reward   float64
	rewarded bool
}

type Option func(*Environment)

// WithSolver replaces the default adaptive RK45 solver.
func WithSolver(s dynamo.Solver) Option {
	return func(e *Environment) { e.solver = s }
}

func New(cfg Config, coeffs *swimmer.Coefficients, rng *rand.Rand, opts ...Option) (*Environment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if coeffs == nil {
		return nil, dynamo.Configf("coefficients are required")
	}
	if rng == nil {
		return nil, dynamo.Configf("random source is required")
	}

	e := &Environment{
		cfg:    cfg,
		coeffs: coeffs,
		solver: integrators.NewRK45(),
		rng:    rng,
		status: Uninitialized,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Reset starts a new episode with positions drawn uniformly from
// [-L/2, L/2].
func (e *Environment) Reset() {
	n := e.coeffs.Len()
	x := make([]float64, n)
	half := e.cfg.BoxLength / 2
	for i := range x {
		x[i] = -half + e.cfg.BoxLength*e.rng.Float64()
	}
	e.start(x)
}

// ResetTo starts a new episode from explicit positions.
func (e *Environment) ResetTo(x []float64) error {
	if len(x) != e.coeffs.Len() {
		return dynamo.Configf("reset with %d positions for %d swimmers", len(x), e.coeffs.Len())
	}
	e.start(x)
	return nil
}

func (e *Environment) start(x []float64) {
	e.state = swimmer.NewState(x)
	e.prevDist = distances(e.state.X)
	e.steps = 0
	e.status = Running
	e.rewarded = false
}

// Advance applies one drive frequency for one control interval and
// returns the resulting status. The episode fails once MaxSteps intervals
// have elapsed; otherwise it succeeds as soon as every swimmer is strictly
// inside SuccessRadius, including on the first step.
//
// An integration error ends the episode as a Failure and is returned.
func (e *Environment) Advance(action []float64) (Status, error) {
	if e.status != Running {
		return e.status, dynamo.Protocolf("advance in %s episode", e.status)
	}
	if len(action) != 1 {
		return e.status, dynamo.Protocolf("expected 1 action component, got %d", len(action))
	}

	e.rewarded = false

	next, err := swimmer.AdvanceWith(e.solver, e.state, e.coeffs, action[0], e.cfg.Dt)
	if err != nil {
		e.status = Failure
		return e.status, err
	}

	e.state = next
	e.steps++

	switch {
	case e.steps >= e.cfg.MaxSteps:
		e.status = Failure
	case e.withinTarget():
		e.status = Success
	default:
		e.status = Running
	}
	return e.status, nil
}

func (e *Environment) withinTarget() bool {
	for _, x := range e.state.X {
		if !(math.Abs(x) < e.cfg.SuccessRadius) {
			return false
		}
	}
	return true
}

// Observation returns a copy of the swimmer positions.
func (e *Environment) Observation() []float64 {
	obs := make([]float64, len(e.state.X))
	copy(obs, e.state.X)
	return obs
}

// Reward charges the elapsed control interval and credits the total
// decrease in distance to the origin since the previously rewarded step.
// Repeated calls between two Advance calls return the same value, so the
// rewards of an episode telescope.
func (e *Environment) Reward() float64 {
	if e.rewarded {
		return e.reward
	}
	r := -e.cfg.TimePenalty * e.cfg.Dt

	dist := distances(e.state.X)
	for i := range dist {
		r += e.prevDist[i] - dist[i]
	}
	e.prevDist = dist

	if e.status == Success {
		r += e.cfg.SuccessBonus
	}
	e.reward, e.rewarded = r, true
	return r
}

func (e *Environment) Status() Status { return e.status }
func (e *Environment) Steps() int     { return e.steps }
func (e *Environment) Config() Config { return e.cfg }

func (e *Environment) Coefficients() *swimmer.Coefficients { return e.coeffs }

// State returns a copy of the full swimmer state.
func (e *Environment) State() swimmer.State { return e.state.Clone() }

// Time is the model time elapsed in the current episode.
func (e *Environment) Time() float64 { return float64(e.steps) * e.cfg.Dt }

func distances(x []float64) []float64 {
	d := make([]float64, len(x))
	for i, v := range x {
		d[i] = math.Abs(v)
	}
	return d
}
