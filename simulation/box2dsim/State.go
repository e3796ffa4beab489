package box2dsim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gaitrl/utils/floatutils"
)

// bodyState is the planar configuration of a single body. X and Y
// give the position of the body origin, while VX and VY give the
// velocity of the body's center of mass, as Box2D reports it.
type bodyState struct {
	X, Y, Angle float64
	VX, VY, W   float64
}

func (b bodyState) valid() bool {
	return floatutils.IsFinite(b.X, b.Y, b.Angle, b.VX, b.VY, b.W)
}

// State implements simulation.State for Box2D models.
//
// The body configurations, muscle activations, and muscle forces are
// stored in plain slices so that States can be copied cheaply. The
// Box2D world that advances a State is built lazily the first time the
// State is integrated, and is never shared between States.
type State struct {
	model *Model
	time  float64

	bodies     []bodyState
	activation []float64
	force      []float64
	accel      r3.Vec

	world *world
}

// Time returns the simulated time of the State
func (s *State) Time() float64 {
	return s.time
}

// copy returns a deep copy of the State without its Box2D world
func (s *State) copy() *State {
	bodies := make([]bodyState, len(s.bodies))
	copy(bodies, s.bodies)

	activation := make([]float64, len(s.activation))
	copy(activation, s.activation)

	force := make([]float64, len(s.force))
	copy(force, s.force)

	return &State{
		model:      s.model,
		time:       s.time,
		bodies:     bodies,
		activation: activation,
		force:      force,
		accel:      s.accel,
	}
}

// valid returns whether all bodies are in a finite configuration
func (s *State) valid() bool {
	for _, b := range s.bodies {
		if !b.valid() {
			return false
		}
	}
	return true
}

// unknownAcceleration is the center of mass acceleration of a State
// that has never been integrated
func unknownAcceleration() r3.Vec {
	return r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
}
