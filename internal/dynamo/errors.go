package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfig indicates invalid configuration: length mismatch,
	// non-positive dt, malformed coefficient input.
	ErrConfig = errors.New("dynamo: invalid configuration")

	// ErrIntegration indicates the adaptive solver could not meet its
	// tolerance within its step budget.
	ErrIntegration = errors.New("dynamo: integration failed")

	// ErrProtocol indicates an out-of-order exchange with the agent.
	ErrProtocol = errors.New("dynamo: protocol violation")

	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// IntegrationError wraps a solver failure with the point it was reached.
type IntegrationError struct {
	Steps   int
	Time    float64
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%v after %d steps (t=%.6g)", e.Wrapped, e.Steps, e.Time)
}

func (e *IntegrationError) Unwrap() []error {
	return []error{ErrIntegration, e.Wrapped}
}

// Configf returns an ErrConfig wrapped with a formatted message.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// Protocolf returns an ErrProtocol wrapped with a formatted message.
func Protocolf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}
