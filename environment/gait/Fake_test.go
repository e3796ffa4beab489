package gait

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gaitrl/simulation"
)

// fakeState is the state of a fakeModel. The pelvis moves forward with
// the mean activation and sinks at a constant rate.
type fakeState struct {
	time       float64
	tx, ty     float64
	accel      float64
	integrated bool
	activation []float64
}

func (s *fakeState) Time() float64 {
	return s.time
}

// fakeModel is a deterministic simulation.Model for testing
type fakeModel struct {
	joints    []simulation.Joint
	actuators int

	height float64 // initial pelvis height
	sink   float64 // pelvis sink rate

	// failAt is the number of successful integrations after which
	// integration fails, or a negative number to never fail
	failAt       int
	integrations int

	initCalls      int
	initErr        error
	equilibrateErr error

	// badActuator is the index of an actuator whose activation cannot
	// be set, or a negative number if all activations can be set
	badActuator int

	setCalls   int
	lastActive []float64
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		joints: []simulation.Joint{
			{Name: Pelvis, Kind: simulation.Planar, Parent: "ground",
				Child: "pelvis", Coordinates: 3},
			{Name: HipR, Kind: simulation.Pin, Coordinates: 1},
			{Name: KneeR, Kind: simulation.Custom, Coordinates: 1},
			{Name: AnkleR, Kind: simulation.Pin, Coordinates: 1},
			{Name: "subtalar_r", Kind: simulation.Weld, Coordinates: 0},
			{Name: HipL, Kind: simulation.Pin, Coordinates: 1},
			{Name: KneeL, Kind: simulation.Custom, Coordinates: 1},
			{Name: AnkleL, Kind: simulation.Pin, Coordinates: 1},
		},
		actuators:   18,
		height:      0.94,
		failAt:      -1,
		badActuator: -1,
	}
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Bodies() []simulation.Body {
	return []simulation.Body{{Name: "pelvis", Mass: 1.0}}
}

func (m *fakeModel) Joints() []simulation.Joint { return m.joints }

func (m *fakeModel) Actuators() []string {
	names := make([]string, m.actuators)
	for i := range names {
		names[i] = fmt.Sprintf("muscle%d", i)
	}
	return names
}

func (m *fakeModel) InitSystem() (simulation.State, error) {
	m.initCalls++
	if m.initErr != nil {
		return nil, m.initErr
	}
	return &fakeState{ty: m.height, activation: make([]float64, m.actuators)},
		nil
}

func (m *fakeModel) CopyState(s simulation.State) simulation.State {
	st := s.(*fakeState)
	c := *st
	c.activation = append([]float64(nil), st.activation...)
	return &c
}

func (m *fakeModel) EquilibrateMuscles(s simulation.State) error {
	return m.equilibrateErr
}

func (m *fakeModel) SetActivation(s simulation.State, i int,
	a float64) error {
	if i < 0 || i >= m.actuators || i == m.badActuator {
		return simulation.ErrUnknownActuator
	}
	m.setCalls++
	s.(*fakeState).activation[i] = a
	return nil
}

func (m *fakeModel) Activation(s simulation.State, i int) (float64, error) {
	if i < 0 || i >= m.actuators {
		return 0, simulation.ErrUnknownActuator
	}
	return s.(*fakeState).activation[i], nil
}

func (m *fakeModel) CoordinateValue(s simulation.State, joint string,
	c int) (float64, error) {
	st := s.(*fakeState)
	switch joint {
	case Pelvis:
		return [3]float64{0.0, st.tx, st.ty}[c], nil
	case HipR, HipL, AnkleR, AnkleL, KneeR, KneeL:
		return st.activation[0], nil
	}
	return 0, simulation.ErrUnknownJoint
}

func (m *fakeModel) CoordinateSpeed(s simulation.State, joint string,
	c int) (float64, error) {
	st := s.(*fakeState)
	switch joint {
	case Pelvis:
		return [3]float64{0.0, mean(st.activation), -m.sink}[c], nil
	case KneeR:
		return math.NaN(), nil
	case HipR, HipL, AnkleR, AnkleL, KneeL:
		return 0.0, nil
	}
	return 0, simulation.ErrUnknownJoint
}

func (m *fakeModel) MassCenterPosition(s simulation.State) r3.Vec {
	st := s.(*fakeState)
	return r3.Vec{X: st.tx, Y: st.ty}
}

func (m *fakeModel) MassCenterVelocity(s simulation.State) r3.Vec {
	st := s.(*fakeState)
	return r3.Vec{X: mean(st.activation), Y: -m.sink}
}

func (m *fakeModel) MassCenterAcceleration(s simulation.State) r3.Vec {
	st := s.(*fakeState)
	if !st.integrated {
		return r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	}
	return r3.Vec{X: st.accel}
}

func (m *fakeModel) Integrate(s simulation.State, t0, t1,
	accuracy float64) error {
	st := s.(*fakeState)
	if m.failAt >= 0 && m.integrations >= m.failAt {
		return &simulation.IntegrationError{
			Time:    t0,
			Wrapped: simulation.ErrNumericInstability,
		}
	}
	m.integrations++

	a := mean(st.activation)
	st.tx += a * (t1 - t0)
	st.ty -= m.sink * (t1 - t0)
	st.accel = a
	st.integrated = true
	st.time = t1
	m.lastActive = append([]float64(nil), st.activation...)
	return nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// fakeReader implements Reader with fixed values
type fakeReader struct {
	height float64
	tx     float64
	accel  r3.Vec
}

func (r fakeReader) CoordinateValue(joint string, c int) (float64, error) {
	if joint != Pelvis {
		return 0, simulation.ErrUnknownJoint
	}
	switch c {
	case PelvisTX:
		return r.tx, nil
	case PelvisTY:
		return r.height, nil
	}
	return 0, nil
}

func (r fakeReader) MassCenterAcceleration() r3.Vec {
	return r.accel
}
