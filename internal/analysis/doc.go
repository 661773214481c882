// Package analysis characterizes swimmer rollouts.
//
// The package includes tools for the step-out transition and the slip
// dynamics above it:
//
//   - [DominantFrequency]: strongest non-DC frequency of a sampled signal
//   - [LagExponent]: decay rate of perturbations of a swimmer's phase lag
//   - [FrequencySweep]: integrated drift and lock state over a frequency grid
//   - [GeneratePhasePortrait]: lag against angular velocity for one swimmer
//   - [StroboscopicSection]: state sampled once per field revolution
//
// # Step-out
//
// Below its step-out frequency a swimmer phase-locks to the field and the
// lag exponent is negative; above it the lag slips periodically at
// sqrt(w^2 - cmb^2) rad per unit time:
//
//	f := analysis.DominantFrequency(result.AngularVelocities(0), dt)
//	// f ~ sqrt(w*w-cmb*cmb) / (2*math.Pi)
package analysis
