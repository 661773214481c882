// Package dynamo provides core simulation primitives for the swimmer model.
//
// The package defines the interfaces and types shared by the integrators,
// the swimmer model, the episode environment and the rollout runner:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator
//   - [AdaptiveIntegrator]: embedded pair with local error estimate
//   - [Controller]: open-loop or feedback control law
//
// # Example
//
//	coeffs, _ := swimmer.NewCoefficients([]float64{1, 1}, []float64{1, 2})
//	s := swimmer.NewState([]float64{0, 0})
//	s, err := swimmer.Advance(s, coeffs, 10, 0.1)
//
// # Errors
//
// Failures are reported with the sentinels [ErrConfig], [ErrIntegration]
// and [ErrProtocol]; test for them with errors.Is.
package dynamo
