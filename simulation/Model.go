// Package simulation outlines the contract between environments and the
// musculoskeletal physics engines that they wrap. An engine owns the
// physical state of a model and advances it through time; environments
// only read from the state and set actuator commands on it.
package simulation

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// JointKind denotes the structural role of a joint in a model
type JointKind string

const (
	// Planar joints have three coordinates: rotation about the
	// out-of-plane axis followed by the two in-plane translations
	Planar JointKind = "planar"

	// Pin joints have a single rotational coordinate
	Pin JointKind = "pin"

	// Custom joints have a single rotational coordinate whose
	// kinematics may be coupled to the coordinate (e.g. a knee)
	Custom JointKind = "custom"

	// Weld joints have no coordinates
	Weld JointKind = "weld"
)

// Coordinates returns the number of generalized coordinates that a
// joint of kind k contributes to a model, or -1 if the kind is unknown
func (k JointKind) Coordinates() int {
	switch k {
	case Planar:
		return 3
	case Pin, Custom:
		return 1
	case Weld:
		return 0
	}
	return -1
}

// Joint describes a joint of a model
type Joint struct {
	Name        string
	Kind        JointKind
	Parent      string
	Child       string
	Coordinates int
}

// Body describes a rigid body of a model
type Body struct {
	Name string
	Mass float64
}

// State is a physical configuration of a model at some point in
// simulated time. States are opaque to environments and can only be
// inspected or modified through the Model that created them.
type State interface {
	Time() float64
}

// Model implements a musculoskeletal model together with the engine
// that simulates it.
//
// All methods that take a State require that the State was created
// by the same Model, either through InitSystem() or CopyState().
type Model interface {
	Name() string
	Bodies() []Body
	Joints() []Joint
	Actuators() []string

	// InitSystem constructs the baseline state of the model. This may
	// be expensive and is expected to be called once.
	InitSystem() (State, error)

	// CopyState returns an independent copy of a state
	CopyState(s State) State

	// EquilibrateMuscles sets the internal actuator states of s so that
	// they are in equilibrium with the current activations
	EquilibrateMuscles(s State) error

	SetActivation(s State, actuator int, activation float64) error
	Activation(s State, actuator int) (float64, error)

	CoordinateValue(s State, joint string, coordinate int) (float64, error)
	CoordinateSpeed(s State, joint string, coordinate int) (float64, error)

	MassCenterPosition(s State) r3.Vec
	MassCenterVelocity(s State) r3.Vec

	// MassCenterAcceleration returns the acceleration of the center of
	// mass. Components may be NaN if the acceleration is not yet known,
	// for example before the state has ever been integrated.
	MassCenterAcceleration(s State) r3.Vec

	// Integrate advances s from time t0 to time t1 using the given
	// integration accuracy. Failures to advance return an error
	// wrapping ErrNumericInstability.
	Integrate(s State, t0, t1, accuracy float64) error
}
