package integrators

import (
	"sort"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// DefaultSubstep is the substep length used when a fixed-step integrator is
// turned into a Solver by name.
const DefaultSubstep = 1e-3

var solvers = map[string]func() dynamo.Solver{
	"rk45":  func() dynamo.Solver { return NewRK45() },
	"rk4":   func() dynamo.Solver { return NewFixed(NewRK4(), DefaultSubstep) },
	"euler": func() dynamo.Solver { return NewFixed(NewEuler(), DefaultSubstep) },
}

// NewSolver returns the named solver. Fixed-step integrators are wrapped
// with DefaultSubstep.
func NewSolver(name string) (dynamo.Solver, error) {
	fn, ok := solvers[name]
	if !ok {
		return nil, dynamo.Configf("unknown integrator: %s (available: %v)", name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(solvers))
	for name := range solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
