package gait

import (
	"fmt"

	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/simulation"
)

// Joints of the gait9dof18musc model that environments read from
const (
	Pelvis string = "ground_pelvis"
	HipR   string = "hip_r"
	HipL   string = "hip_l"
	KneeR  string = "knee_r"
	KneeL  string = "knee_l"
	AnkleR string = "ankle_r"
	AnkleL string = "ankle_l"
)

// Coordinates of the planar pelvis joint: the pelvis tilt, the forward
// translation, and the pelvis height
const (
	PelvisTilt int = iota
	PelvisTX
	PelvisTY
)

// JointSpec is the expected structure of a single joint
type JointSpec struct {
	Kind        simulation.JointKind
	Coordinates int
}

// Schema maps the names of the joints an environment reads from to
// their expected structure. Joints of a model that are not in the
// Schema are ignored.
type Schema map[string]JointSpec

// Gait9DoF returns the Schema of the planar 9 degree of freedom gait
// model
func Gait9DoF() Schema {
	return Schema{
		Pelvis: {Kind: simulation.Planar, Coordinates: 3},
		HipR:   {Kind: simulation.Pin, Coordinates: 1},
		HipL:   {Kind: simulation.Pin, Coordinates: 1},
		KneeR:  {Kind: simulation.Custom, Coordinates: 1},
		KneeL:  {Kind: simulation.Custom, Coordinates: 1},
		AnkleR: {Kind: simulation.Pin, Coordinates: 1},
		AnkleL: {Kind: simulation.Pin, Coordinates: 1},
	}
}

// Validate ensures that each joint of the Schema exists in joints
// with the expected kind and number of coordinates. Validate returns
// an error wrapping environment.ErrInitialization otherwise.
func (s Schema) Validate(joints []simulation.Joint) error {
	byName := make(map[string]simulation.Joint, len(joints))
	for _, j := range joints {
		byName[j.Name] = j
	}

	for name, want := range s {
		have, ok := byName[name]
		if !ok {
			return fmt.Errorf("validate: %w: model has no joint %v",
				environment.ErrInitialization, name)
		}
		if have.Kind != want.Kind {
			return fmt.Errorf("validate: %w: joint %v has wrong kind "+
				"\n\thave(%v) \n\twant(%v)", environment.ErrInitialization,
				name, have.Kind, want.Kind)
		}
		if have.Coordinates != want.Coordinates {
			return fmt.Errorf("validate: %w: joint %v has wrong number of "+
				"coordinates \n\thave(%v) \n\twant(%v)",
				environment.ErrInitialization, name, have.Coordinates,
				want.Coordinates)
		}
	}
	return nil
}

// has returns whether the Schema declares coordinate c of joint
func (s Schema) has(joint string, c int) bool {
	spec, ok := s[joint]
	return ok && c >= 0 && c < spec.Coordinates
}
