// Package agent defines an agent interface along with agents that do
// not learn, which are used to drive environments
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gaitrl/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Step performs a single update to the learner
	Step() error

	// Observe records that an action lead to some timestep
	Observe(action mat.Vector, nextObs timestep.TimeStep) error

	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep) error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. Agents usually have a
// target and behaviour policy.
type Policy interface {
	SelectAction(t timestep.TimeStep) *mat.VecDense
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// nonLearner implements the Learner interface for agents that never
// learn
type nonLearner struct{}

func (nonLearner) Step() error { return nil }
func (nonLearner) Observe(mat.Vector, timestep.TimeStep) error { return nil }
func (nonLearner) ObserveFirst(timestep.TimeStep) error { return nil }
func (nonLearner) EndEpisode() {}

// evalMode implements the mode switching of the Policy interface
type evalMode struct {
	eval bool
}

func (e *evalMode) Eval() { e.eval = true }
func (e *evalMode) Train() { e.eval = false }
func (e *evalMode) IsEval() bool { return e.eval }
