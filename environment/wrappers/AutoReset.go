package wrappers

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gaitrl/environment"
	ts "github.com/samuelfneumann/gaitrl/timestep"
)

// AutoReset wraps an environment and absorbs simulation failures. When
// the wrapped environment fails to advance its simulation, AutoReset
// immediately resets it and reports the failed step as the last step
// of the episode rather than returning an error. The first timestep of
// the new episode is returned by the next call to Reset.
//
// AutoReset itself implements the environment.Environment interface,
// and is therefore itself an Environment.
type AutoReset struct {
	environment.Environment
	logger *slog.Logger

	failures int

	// pending is the first step of an episode that was started after a
	// failure but not yet returned by Reset
	pending *ts.TimeStep
}

// NewAutoReset returns a new AutoReset environment wrapping env. If
// logger is nil, the default logger is used.
func NewAutoReset(env environment.Environment,
	logger *slog.Logger) *AutoReset {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoReset{Environment: env, logger: logger}
}

// Failures returns the number of simulation failures absorbed
func (a *AutoReset) Failures() int {
	return a.failures
}

// Reset resets the environment to a new episode
func (a *AutoReset) Reset() (ts.TimeStep, error) {
	if a.pending != nil {
		step := *a.pending
		a.pending = nil
		return step, nil
	}
	return a.Environment.Reset()
}

// Step takes one step in the environment. If the simulation fails,
// Step returns the failed step with done set and a nil error. Step
// still returns an error if the environment cannot be reset after a
// failure.
func (a *AutoReset) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	step, done, err := a.Environment.Step(action)
	if err == nil {
		a.pending = nil
		return step, done, nil
	}
	if !errors.Is(err, environment.ErrNumericInstability) {
		return step, done, err
	}

	a.failures++
	a.logger.Warn("resetting after simulation failure", "step", step.Number,
		"failures", a.failures, "error", err)

	first, resetErr := a.Environment.Reset()
	if resetErr != nil {
		return step, true, fmt.Errorf("step: could not reset after "+
			"failure: %w", resetErr)
	}
	a.pending = &first

	return step, true, nil
}
