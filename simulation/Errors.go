package simulation

import (
	"errors"
	"fmt"
)

var (
	// ErrNumericInstability indicates that a state could not be
	// advanced within the requested accuracy, or that it diverged
	ErrNumericInstability = errors.New("numeric instability")

	// ErrUnknownJoint indicates a query for a joint or coordinate that
	// does not exist in a model
	ErrUnknownJoint = errors.New("unknown joint coordinate")

	// ErrUnknownActuator indicates an actuator index out of range
	ErrUnknownActuator = errors.New("unknown actuator")

	// ErrForeignState indicates that a State was not created by the
	// Model it was passed to
	ErrForeignState = errors.New("state not created by this model")
)

// IntegrationError records the simulated time at which a state could
// not be advanced
type IntegrationError struct {
	Time    float64
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration failed at t=%.4f: %v", e.Time, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}
