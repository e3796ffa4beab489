// Package box2dsim implements planar musculoskeletal models simulated
// with the Box2D physics engine.
//
// Each body of a model is a single box. Bodies are connected by
// revolute joints placed at the child body's origin, and the root body
// floats freely in the plane. Muscles are first-order force generators
// that apply equal and opposite torques to the bodies on either side of
// each joint they cross.
package box2dsim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gaitrl/simulation"
	"github.com/samuelfneumann/gaitrl/utils/floatutils"
)

const (
	// MaxSubstep is the largest substep taken by Box2D, in seconds
	MaxSubstep float64 = 1.0 / 240.0

	// divergence bounds any value of a state that is still considered
	// numerically stable
	divergence float64 = 1e6
)

// activationBounds bounds the activations that generate force
var activationBounds = r1.Interval{Min: 0.0, Max: 1.0}

// joint is a JointDef resolved to body indices. Parent is -1 for the
// ground.
type joint struct {
	name         string
	kind         simulation.JointKind
	parent       int
	child        int
	lower, upper float64
	damping      float64
}

type momentArm struct {
	joint int
	arm   float64
}

type muscle struct {
	name         string
	maxForce     float64
	timeConstant float64
	arms         []momentArm
}

// Model implements simulation.Model for planar models built on Box2D
type Model struct {
	def       Definition
	joints    []joint
	jointIdx  map[string]int
	muscles   []muscle
	totalMass float64
}

// Load loads the model definition at path, or the bundled definition
// of the same name, and returns the Model that it describes
func Load(path string) (*Model, error) {
	def, err := LoadDefinition(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return New(def)
}

// New returns a new Model for a definition
func New(def Definition) (*Model, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("new: invalid model definition: %w", err)
	}

	bodyIdx := make(map[string]int, len(def.Bodies))
	totalMass := 0.0
	for i, b := range def.Bodies {
		bodyIdx[b.Name] = i
		totalMass += b.Mass
	}

	joints := make([]joint, len(def.Joints))
	jointIdx := make(map[string]int, len(def.Joints))
	for i, j := range def.Joints {
		parent := -1
		if j.Parent != Ground {
			parent = bodyIdx[j.Parent]
		}

		var lower, upper float64
		if len(j.Range) == 2 {
			lower, upper = j.Range[0], j.Range[1]
		}

		joints[i] = joint{
			name:    j.Name,
			kind:    j.Kind,
			parent:  parent,
			child:   bodyIdx[j.Child],
			lower:   lower,
			upper:   upper,
			damping: j.Damping,
		}
		jointIdx[j.Name] = i
	}

	muscles := make([]muscle, len(def.Muscles))
	for i, m := range def.Muscles {
		arms := make([]momentArm, len(m.MomentArms))
		for k, arm := range m.MomentArms {
			arms[k] = momentArm{joint: jointIdx[arm.Joint], arm: arm.Arm}
		}
		muscles[i] = muscle{
			name:         m.Name,
			maxForce:     m.MaxForce,
			timeConstant: m.TimeConstant,
			arms:         arms,
		}
	}

	return &Model{
		def:       def,
		joints:    joints,
		jointIdx:  jointIdx,
		muscles:   muscles,
		totalMass: totalMass,
	}, nil
}

// Name returns the name of the model
func (m *Model) Name() string {
	return m.def.Name
}

// Bodies returns the bodies of the model in definition order
func (m *Model) Bodies() []simulation.Body {
	bodies := make([]simulation.Body, len(m.def.Bodies))
	for i, b := range m.def.Bodies {
		bodies[i] = simulation.Body{Name: b.Name, Mass: b.Mass}
	}
	return bodies
}

// Joints returns the joints of the model in definition order
func (m *Model) Joints() []simulation.Joint {
	joints := make([]simulation.Joint, len(m.def.Joints))
	for i, j := range m.def.Joints {
		joints[i] = simulation.Joint{
			Name:        j.Name,
			Kind:        j.Kind,
			Parent:      j.Parent,
			Child:       j.Child,
			Coordinates: j.Kind.Coordinates(),
		}
	}
	return joints
}

// Actuators returns the names of the muscles of the model
func (m *Model) Actuators() []string {
	names := make([]string, len(m.muscles))
	for i, mus := range m.muscles {
		names[i] = mus.name
	}
	return names
}

// InitSystem returns the model at rest in its definition pose with
// all muscles deactivated
func (m *Model) InitSystem() (simulation.State, error) {
	bodies := make([]bodyState, len(m.def.Bodies))
	for i, b := range m.def.Bodies {
		bodies[i] = bodyState{X: b.Origin[0], Y: b.Origin[1]}
	}

	return &State{
		model:      m,
		bodies:     bodies,
		activation: make([]float64, len(m.muscles)),
		force:      make([]float64, len(m.muscles)),
		accel:      unknownAcceleration(),
	}, nil
}

// CopyState returns an independent copy of s. CopyState panics if s
// was not created by m.
func (m *Model) CopyState(s simulation.State) simulation.State {
	st, err := m.state(s)
	if err != nil {
		panic(fmt.Sprintf("copyState: %v", err))
	}
	return st.copy()
}

// EquilibrateMuscles sets the force of each muscle to the steady-state
// force of its current activation
func (m *Model) EquilibrateMuscles(s simulation.State) error {
	st, err := m.state(s)
	if err != nil {
		return fmt.Errorf("equilibrateMuscles: %w", err)
	}

	for i, mus := range m.muscles {
		a := floatutils.ClipInterval(st.activation[i], activationBounds)
		st.force[i] = a * mus.maxForce
	}
	return nil
}

// SetActivation sets the activation of a muscle. Activations outside
// [0, 1] are stored as given and saturate when producing force.
func (m *Model) SetActivation(s simulation.State, actuator int,
	activation float64) error {
	st, err := m.state(s)
	if err != nil {
		return fmt.Errorf("setActivation: %w", err)
	}
	if actuator < 0 || actuator >= len(m.muscles) {
		return fmt.Errorf("setActivation: %w: have(%v) want [0, %v)",
			simulation.ErrUnknownActuator, actuator, len(m.muscles))
	}

	st.activation[actuator] = activation
	return nil
}

// Activation returns the activation of a muscle
func (m *Model) Activation(s simulation.State, actuator int) (float64,
	error) {
	st, err := m.state(s)
	if err != nil {
		return 0, fmt.Errorf("activation: %w", err)
	}
	if actuator < 0 || actuator >= len(m.muscles) {
		return 0, fmt.Errorf("activation: %w: have(%v) want [0, %v)",
			simulation.ErrUnknownActuator, actuator, len(m.muscles))
	}

	return st.activation[actuator], nil
}

// Force returns the force currently produced by a muscle
func (m *Model) Force(s simulation.State, actuator int) (float64, error) {
	st, err := m.state(s)
	if err != nil {
		return 0, fmt.Errorf("force: %w", err)
	}
	if actuator < 0 || actuator >= len(m.muscles) {
		return 0, fmt.Errorf("force: %w: have(%v) want [0, %v)",
			simulation.ErrUnknownActuator, actuator, len(m.muscles))
	}

	return st.force[actuator], nil
}

// CoordinateValue returns the value of a joint coordinate. Coordinates
// of the planar root are the rotation, the horizontal translation, and
// the vertical translation of the root body's origin. All other joints
// report the angle of the child body relative to the parent body.
func (m *Model) CoordinateValue(s simulation.State, jointName string,
	coordinate int) (float64, error) {
	st, err := m.state(s)
	if err != nil {
		return 0, fmt.Errorf("coordinateValue: %w", err)
	}
	j, err := m.coordinate(jointName, coordinate)
	if err != nil {
		return 0, fmt.Errorf("coordinateValue: %w", err)
	}

	child := st.bodies[j.child]
	if j.kind == simulation.Planar {
		switch coordinate {
		case 0:
			return child.Angle, nil
		case 1:
			return child.X, nil
		default:
			return child.Y, nil
		}
	}
	return child.Angle - m.parentAngle(st, j), nil
}

// CoordinateSpeed returns the time derivative of a joint coordinate
func (m *Model) CoordinateSpeed(s simulation.State, jointName string,
	coordinate int) (float64, error) {
	st, err := m.state(s)
	if err != nil {
		return 0, fmt.Errorf("coordinateSpeed: %w", err)
	}
	j, err := m.coordinate(jointName, coordinate)
	if err != nil {
		return 0, fmt.Errorf("coordinateSpeed: %w", err)
	}

	child := st.bodies[j.child]
	if j.kind == simulation.Planar {
		// Box2D tracks the velocity of the center of mass, which is
		// offset from the body origin by rx, ry
		rx, ry := rotate(m.def.Bodies[j.child].Center, child.Angle)
		switch coordinate {
		case 0:
			return child.W, nil
		case 1:
			return child.VX + child.W*ry, nil
		default:
			return child.VY - child.W*rx, nil
		}
	}

	parentW := 0.0
	if j.parent >= 0 {
		parentW = st.bodies[j.parent].W
	}
	return child.W - parentW, nil
}

// MassCenterPosition returns the position of the whole-model center of
// mass. The Z component is always 0.
func (m *Model) MassCenterPosition(s simulation.State) r3.Vec {
	st := m.mustState(s)

	var x, y float64
	for i, b := range m.def.Bodies {
		body := st.bodies[i]
		cx, cy := rotate(b.Center, body.Angle)
		x += b.Mass * (body.X + cx)
		y += b.Mass * (body.Y + cy)
	}
	return r3.Vec{X: x / m.totalMass, Y: y / m.totalMass}
}

// MassCenterVelocity returns the velocity of the whole-model center of
// mass
func (m *Model) MassCenterVelocity(s simulation.State) r3.Vec {
	st := m.mustState(s)
	return m.massCenterVelocity(st)
}

// MassCenterAcceleration returns the acceleration of the whole-model
// center of mass over the last substep that s was integrated through.
// All components are NaN if s has never been integrated.
func (m *Model) MassCenterAcceleration(s simulation.State) r3.Vec {
	st := m.mustState(s)
	return st.accel
}

// Integrate advances s from t0 to t1. The substep and constraint solver
// iterations are chosen so that smaller accuracies result in more
// accurate, and more expensive, integration.
func (m *Model) Integrate(s simulation.State, t0, t1,
	accuracy float64) error {
	st, err := m.state(s)
	if err != nil {
		return fmt.Errorf("integrate: %w", err)
	}
	if !(t1 > t0) {
		return fmt.Errorf("integrate: end time must be after start time: "+
			"have(%v) want(> %v)", t1, t0)
	}
	if !(accuracy > 0) {
		return fmt.Errorf("integrate: accuracy must be positive: have(%v)",
			accuracy)
	}

	if st.world == nil {
		st.world = newWorld(m)
		st.world.load(st)
	}

	h := math.Min(MaxSubstep, math.Sqrt(accuracy)/10.0)
	n := int(math.Ceil((t1 - t0) / h))
	h = (t1 - t0) / float64(n)
	velIters, posIters := iterations(accuracy)

	for i := 0; i < n; i++ {
		t := t0 + float64(i)*h
		prevVel := m.massCenterVelocity(st)

		m.applyMuscles(st, h)
		st.world.b2.Step(h, velIters, posIters)
		st.world.store(st)

		if err := m.stable(st, accuracy); err != nil {
			st.time = t + h
			return fmt.Errorf("integrate: %w", &simulation.IntegrationError{
				Time:    t + h,
				Wrapped: fmt.Errorf("%w: %v", simulation.ErrNumericInstability, err),
			})
		}

		vel := m.massCenterVelocity(st)
		st.accel = r3.Vec{
			X: (vel.X - prevVel.X) / h,
			Y: (vel.Y - prevVel.Y) / h,
		}
	}

	st.time = t1
	return nil
}

// applyMuscles advances the first-order force dynamics of each muscle
// by h seconds and applies the resulting joint torques
func (m *Model) applyMuscles(st *State, h float64) {
	for i, mus := range m.muscles {
		a := floatutils.ClipInterval(st.activation[i], activationBounds)
		target := a * mus.maxForce
		st.force[i] += (target - st.force[i]) *
			(1.0 - math.Exp(-h/mus.timeConstant))

		for _, arm := range mus.arms {
			j := m.joints[arm.joint]
			torque := st.force[i] * arm.arm

			st.world.bodies[j.child].ApplyTorque(torque, true)
			if j.parent >= 0 {
				st.world.bodies[j.parent].ApplyTorque(-torque, true)
			}
		}
	}
}

// stable returns an error describing why st is numerically unstable,
// or nil if it is stable
func (m *Model) stable(st *State, accuracy float64) error {
	if !st.valid() {
		return fmt.Errorf("non-finite body configuration")
	}
	for i, b := range st.bodies {
		for _, v := range []float64{b.X, b.Y, b.VX, b.VY, b.W} {
			if math.Abs(v) > divergence {
				return fmt.Errorf("body %v diverged", m.def.Bodies[i].Name)
			}
		}
	}

	// Joints must hold their bodies together
	for _, j := range m.joints {
		if j.parent < 0 {
			continue
		}
		parentDef := m.def.Bodies[j.parent]
		childDef := m.def.Bodies[j.child]
		parent := st.bodies[j.parent]
		child := st.bodies[j.child]

		ax, ay := rotate([]float64{
			childDef.Origin[0] - parentDef.Origin[0],
			childDef.Origin[1] - parentDef.Origin[1],
		}, parent.Angle)
		dx := parent.X + ax - child.X
		dy := parent.Y + ay - child.Y
		if math.Hypot(dx, dy) > 100*accuracy {
			return fmt.Errorf("joint %v separated", j.name)
		}
	}
	return nil
}

func (m *Model) massCenterVelocity(st *State) r3.Vec {
	var vx, vy float64
	for i, b := range m.def.Bodies {
		vx += b.Mass * st.bodies[i].VX
		vy += b.Mass * st.bodies[i].VY
	}
	return r3.Vec{X: vx / m.totalMass, Y: vy / m.totalMass}
}

func (m *Model) parentAngle(st *State, j joint) float64 {
	if j.parent < 0 {
		return 0.0
	}
	return st.bodies[j.parent].Angle
}

// coordinate returns the joint with the given name if it has the
// given coordinate
func (m *Model) coordinate(name string, coordinate int) (joint, error) {
	i, ok := m.jointIdx[name]
	if !ok {
		return joint{}, fmt.Errorf("%w: no joint %q", simulation.ErrUnknownJoint,
			name)
	}

	j := m.joints[i]
	if coordinate < 0 || coordinate >= j.kind.Coordinates() {
		return joint{}, fmt.Errorf("%w: joint %v has no coordinate %v",
			simulation.ErrUnknownJoint, name, coordinate)
	}
	return j, nil
}

// state converts s to a *State of m
func (m *Model) state(s simulation.State) (*State, error) {
	st, ok := s.(*State)
	if !ok || st == nil || st.model != m {
		return nil, simulation.ErrForeignState
	}
	return st, nil
}

func (m *Model) mustState(s simulation.State) *State {
	st, err := m.state(s)
	if err != nil {
		panic(err)
	}
	return st
}

// rotate rotates the 2-vector v by angle radians
func rotate(v []float64, angle float64) (float64, float64) {
	sin, cos := math.Sincos(angle)
	return cos*v[0] - sin*v[1], sin*v[0] + cos*v[1]
}

// Ensure Model implements simulation.Model
var _ simulation.Model = (*Model)(nil)
