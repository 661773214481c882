package sim

import (
	"context"
	"sync"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/swimmer"
)

// Ensemble runs the same rollout from many starting positions
// concurrently. Controllers and metrics carry state, so each run builds
// its own from the factories.
type Ensemble struct {
	coeffs     *swimmer.Coefficients
	solver     func() dynamo.Solver
	controller func() dynamo.Controller
	metrics    func() []dynamo.Metric
}

func NewEnsemble(coeffs *swimmer.Coefficients, solver func() dynamo.Solver, controller func() dynamo.Controller, metrics func() []dynamo.Metric) *Ensemble {
	return &Ensemble{coeffs: coeffs, solver: solver, controller: controller, metrics: metrics}
}

func (e *Ensemble) Run(ctx context.Context, starts [][]float64, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(starts))
	errs := make([]error, len(starts))

	var wg sync.WaitGroup
	for i := range starts {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sim := New(e.coeffs, e.solver(), e.controller())
			if e.metrics != nil {
				for _, m := range e.metrics() {
					sim.AddMetric(m)
				}
			}

			results[idx], errs[idx] = sim.Run(ctx, starts[idx], cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// MeanMetrics averages each metric over the runs.
func MeanMetrics(results []*Result) map[string]float64 {
	out := make(map[string]float64)
	if len(results) == 0 {
		return out
	}
	for _, r := range results {
		for k, v := range r.Metrics {
			out[k] += v
		}
	}
	for k := range out {
		out[k] /= float64(len(results))
	}
	return out
}
