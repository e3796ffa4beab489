package gait

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/simulation"
	"github.com/samuelfneumann/gaitrl/utils/floatutils"
)

// Quantity is a scalar quantity that can be read from a simulation
// state
type Quantity int

const (
	CoordinateValue Quantity = iota
	CoordinateSpeed
	MassCenterPosition
	MassCenterVelocity
	MassCenterAcceleration
)

func (q Quantity) String() string {
	switch q {
	case CoordinateValue:
		return "CoordinateValue"
	case CoordinateSpeed:
		return "CoordinateSpeed"
	case MassCenterPosition:
		return "MassCenterPosition"
	case MassCenterVelocity:
		return "MassCenterVelocity"
	case MassCenterAcceleration:
		return "MassCenterAcceleration"
	}
	return fmt.Sprintf("Quantity(%d)", int(q))
}

// Field is a single element of an observation. Joint is ignored for
// center of mass quantities, for which Index selects the x, y, or z
// component.
type Field struct {
	Quantity Quantity
	Joint    string
	Index    int
}

func (f Field) String() string {
	switch f.Quantity {
	case CoordinateValue, CoordinateSpeed:
		return fmt.Sprintf("%v(%v[%d])", f.Quantity, f.Joint, f.Index)
	}
	return fmt.Sprintf("%v[%d]", f.Quantity, f.Index)
}

// Layout is the ordered list of fields that make up an observation
type Layout []Field

// DefaultLayout returns the 24-element observation layout: the nine
// coordinate values of the pelvis, hips, ankles, and knees, followed by
// their nine speeds, the center of mass position, and the center of
// mass velocity
func DefaultLayout() Layout {
	coords := []struct {
		joint string
		index int
	}{
		{Pelvis, PelvisTilt},
		{Pelvis, PelvisTX},
		{Pelvis, PelvisTY},
		{HipR, 0},
		{HipL, 0},
		{AnkleR, 0},
		{AnkleL, 0},
		{KneeR, 0},
		{KneeL, 0},
	}

	layout := make(Layout, 0, 2*len(coords)+6)
	for _, c := range coords {
		layout = append(layout, Field{CoordinateValue, c.joint, c.index})
	}
	for _, c := range coords {
		layout = append(layout, Field{CoordinateSpeed, c.joint, c.index})
	}
	for i := 0; i < 3; i++ {
		layout = append(layout, Field{Quantity: MassCenterPosition, Index: i})
	}
	for i := 0; i < 3; i++ {
		layout = append(layout, Field{Quantity: MassCenterVelocity, Index: i})
	}
	return layout
}

// CompactLayout returns a 4-element observation layout of the pelvis
// translation and the hip angles
func CompactLayout() Layout {
	return Layout{
		{CoordinateValue, Pelvis, PelvisTX},
		{CoordinateValue, Pelvis, PelvisTY},
		{CoordinateValue, HipR, 0},
		{CoordinateValue, HipL, 0},
	}
}

// Validate ensures that every coordinate field of the Layout refers to
// a coordinate declared by the schema, and that every center of mass
// field refers to a valid component. Validate returns an error wrapping
// environment.ErrInitialization otherwise.
func (l Layout) Validate(s Schema) error {
	if len(l) == 0 {
		return fmt.Errorf("validate: %w: empty observation layout",
			environment.ErrInitialization)
	}

	for i, f := range l {
		switch f.Quantity {
		case CoordinateValue, CoordinateSpeed:
			if !s.has(f.Joint, f.Index) {
				return fmt.Errorf("validate: %w: field %v (%v) refers to "+
					"an undeclared coordinate", environment.ErrInitialization,
					i, f)
			}

		case MassCenterPosition, MassCenterVelocity, MassCenterAcceleration:
			if f.Index < 0 || f.Index > 2 {
				return fmt.Errorf("validate: %w: field %v (%v) has no "+
					"such component", environment.ErrInitialization, i, f)
			}

		default:
			return fmt.Errorf("validate: %w: field %v has unknown "+
				"quantity %v", environment.ErrInitialization, i, f.Quantity)
		}
	}
	return nil
}

// Encoder encodes simulation states as observation vectors
type Encoder struct {
	model  simulation.Model
	layout Layout
}

// NewEncoder returns a new Encoder for states of model. The layout is
// copied and should have already been validated.
func NewEncoder(model simulation.Model, layout Layout) *Encoder {
	l := make(Layout, len(layout))
	copy(l, layout)

	return &Encoder{model: model, layout: l}
}

// Len returns the length of encoded observations
func (e *Encoder) Len() int {
	return len(e.layout)
}

// Layout returns a copy of the layout of encoded observations
func (e *Encoder) Layout() Layout {
	l := make(Layout, len(e.layout))
	copy(l, e.layout)
	return l
}

// Encode returns a new observation vector for s. Elements that cannot
// be read or are not finite are set to 0. Encode does not modify s.
func (e *Encoder) Encode(s simulation.State) *mat.VecDense {
	// Center of mass quantities are shared between fields
	var pos, vel, acc *r3.Vec

	obs := make([]float64, len(e.layout))
	for i, f := range e.layout {
		var value float64
		var err error

		switch f.Quantity {
		case CoordinateValue:
			value, err = e.model.CoordinateValue(s, f.Joint, f.Index)

		case CoordinateSpeed:
			value, err = e.model.CoordinateSpeed(s, f.Joint, f.Index)

		case MassCenterPosition:
			if pos == nil {
				v := e.model.MassCenterPosition(s)
				pos = &v
			}
			value = component(*pos, f.Index)

		case MassCenterVelocity:
			if vel == nil {
				v := e.model.MassCenterVelocity(s)
				vel = &v
			}
			value = component(*vel, f.Index)

		case MassCenterAcceleration:
			if acc == nil {
				v := e.model.MassCenterAcceleration(s)
				acc = &v
			}
			value = component(*acc, f.Index)
		}

		if err != nil {
			value = 0.0
		}
		obs[i] = floatutils.ZeroIfInvalid(value)
	}

	return mat.NewVecDense(len(obs), obs)
}

// component returns the x, y, or z component of v
func component(v r3.Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
