package box2dsim

import (
	"math"

	"github.com/ByteArena/box2d"
)

const (
	// Collision categories. Bodies of the model only collide with the
	// ground, never with each other.
	groundCategory uint16 = 0x0001
	modelCategory  uint16 = 0x0002
)

// world is the Box2D world that advances a single State
type world struct {
	b2     box2d.B2World
	ground *box2d.B2Body
	bodies []*box2d.B2Body
}

// newWorld builds a Box2D world for a model in its definition pose
func newWorld(m *Model) *world {
	w := &world{}
	w.b2 = box2d.MakeB2World(box2d.MakeB2Vec2(0.0, m.def.Gravity))

	// Ground
	groundDef := box2d.MakeB2BodyDef()
	groundDef.Type = 0 // Static body
	groundDef.Position = box2d.MakeB2Vec2(0.0, m.def.Ground.Height)
	w.ground = w.b2.CreateBody(&groundDef)

	groundShape := box2d.NewB2EdgeShape()
	groundShape.Set(
		box2d.MakeB2Vec2(-m.def.Ground.HalfWidth, 0.0),
		box2d.MakeB2Vec2(m.def.Ground.HalfWidth, 0.0),
	)
	groundFix := box2d.MakeB2FixtureDef()
	groundFix.Shape = groundShape
	groundFix.Friction = m.def.Ground.Friction
	groundFilter := box2d.MakeB2Filter()
	groundFilter.CategoryBits = groundCategory
	groundFilter.MaskBits = modelCategory
	groundFix.Filter = groundFilter
	w.ground.CreateFixtureFromDef(&groundFix)

	// Bodies
	w.bodies = make([]*box2d.B2Body, len(m.def.Bodies))
	for i, b := range m.def.Bodies {
		bodyDef := box2d.MakeB2BodyDef()
		bodyDef.Type = 2 // Dynamic body
		bodyDef.Position = box2d.MakeB2Vec2(b.Origin[0], b.Origin[1])
		bodyDef.Angle = 0.0
		bodyDef.AllowSleep = false
		body := w.b2.CreateBody(&bodyDef)

		cx, cy := b.Center[0], b.Center[1]
		hx, hy := b.HalfSize[0], b.HalfSize[1]
		vertices := []box2d.B2Vec2{
			box2d.MakeB2Vec2(cx-hx, cy-hy),
			box2d.MakeB2Vec2(cx+hx, cy-hy),
			box2d.MakeB2Vec2(cx+hx, cy+hy),
			box2d.MakeB2Vec2(cx-hx, cy+hy),
		}
		shape := box2d.NewB2PolygonShape()
		shape.Set(vertices, len(vertices))

		fix := box2d.MakeB2FixtureDef()
		fix.Shape = shape
		fix.Density = b.Mass / (4.0 * hx * hy)
		fix.Friction = b.Friction
		fix.Restitution = 0.0
		filter := box2d.MakeB2Filter()
		filter.CategoryBits = modelCategory
		filter.MaskBits = groundCategory
		fix.Filter = filter
		body.CreateFixtureFromDef(&fix)

		w.bodies[i] = body
	}

	// Joints. The root planar joint leaves its child free in the plane,
	// all others are revolute joints located at the child's origin.
	for _, j := range m.joints {
		if j.parent < 0 {
			continue
		}
		parent := m.def.Bodies[j.parent]
		child := m.def.Bodies[j.child]

		rjd := box2d.MakeB2RevoluteJointDef()
		rjd.BodyA = w.bodies[j.parent]
		rjd.BodyB = w.bodies[j.child]
		rjd.LocalAnchorA = box2d.MakeB2Vec2(
			child.Origin[0]-parent.Origin[0],
			child.Origin[1]-parent.Origin[1],
		)
		rjd.LocalAnchorB = box2d.MakeB2Vec2(0.0, 0.0)
		rjd.ReferenceAngle = 0.0
		rjd.CollideConnected = false
		rjd.EnableLimit = true
		rjd.LowerAngle = j.lower
		rjd.UpperAngle = j.upper

		// A motor driven to zero speed with a small maximum torque
		// acts as joint friction
		if j.damping > 0 {
			rjd.EnableMotor = true
			rjd.MotorSpeed = 0.0
			rjd.MaxMotorTorque = j.damping
		}
		w.b2.CreateJoint(&rjd)
	}

	return w
}

// load moves the bodies of the world to the configuration of s
func (w *world) load(s *State) {
	for i, b := range s.bodies {
		w.bodies[i].SetTransform(box2d.MakeB2Vec2(b.X, b.Y), b.Angle)
		w.bodies[i].SetLinearVelocity(box2d.MakeB2Vec2(b.VX, b.VY))
		w.bodies[i].SetAngularVelocity(b.W)
	}
}

// store copies the configuration of the bodies of the world into s
func (w *world) store(s *State) {
	for i, body := range w.bodies {
		pos := body.GetPosition()
		vel := body.GetLinearVelocity()
		s.bodies[i] = bodyState{
			X:     pos.X,
			Y:     pos.Y,
			Angle: body.GetAngle(),
			VX:    vel.X,
			VY:    vel.Y,
			W:     body.GetAngularVelocity(),
		}
	}
}

// iterations returns the number of velocity and position constraint
// solver iterations needed for an integration accuracy
func iterations(accuracy float64) (velocity, position int) {
	// Tolerate rounding in Log10 so that exact powers of ten are not
	// rounded up to the next digit
	digits := int(math.Ceil(-math.Log10(accuracy) - 1e-9))
	if digits < 1 {
		digits = 1
	}

	velocity, position = 4*digits, 2*digits
	if velocity < 8 {
		velocity = 8
	}
	if position < 3 {
		position = 3
	}
	return velocity, position
}
