package environment

import (
	"errors"

	"github.com/samuelfneumann/gaitrl/simulation"
)

var (
	// ErrInitialization indicates that an environment could not be
	// constructed, or that its baseline state could not be produced
	ErrInitialization = errors.New("initialization failed")

	// ErrInvalidAction indicates an action of the wrong length or with
	// non-finite elements
	ErrInvalidAction = errors.New("invalid action")

	// ErrNotInitialized indicates a step taken before any successful
	// reset
	ErrNotInitialized = errors.New("environment not reset")

	// ErrEpisodeOver indicates a step taken after the episode ended
	// and before the next reset
	ErrEpisodeOver = errors.New("episode over")

	// ErrNumericInstability indicates that the simulation could not be
	// advanced within the configured accuracy
	ErrNumericInstability = simulation.ErrNumericInstability
)
