// Package environment outlines the interfaces and structs needed to implement
// concrete environments
package environment

import (
	"io"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gaitrl/timestep"
)

// Ender determines when an episode should end. If the episode should
// end, End() adjusts the timestep so that its StepType is
// timestep.Last and its EndType describes why the episode ended.
type Ender interface {
	End(t *ts.TimeStep) bool
}

// Environment implements a simulated environment that an agent
// interacts with in episodes.
//
// Reset must be called before the first Step. Once Step reports that
// an episode is done, Step must not be called again until the next
// Reset.
type Environment interface {
	Reset() (ts.TimeStep, error)
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)
	CurrentTimeStep() ts.TimeStep

	RewardSpec() Spec
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec

	// Render writes a representation of the environment to w
	Render(w io.Writer) error
}
