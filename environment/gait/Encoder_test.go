package gait

import (
	"math"
	"testing"
)

func TestDefaultLayout(t *testing.T) {
	layout := DefaultLayout()
	if len(layout) != 24 {
		t.Fatalf("layout length: have(%v) want(24)", len(layout))
	}
	if err := layout.Validate(Gait9DoF()); err != nil {
		t.Errorf("validate: %v", err)
	}

	want := map[int]Field{
		0:  {CoordinateValue, Pelvis, PelvisTilt},
		2:  {CoordinateValue, Pelvis, PelvisTY},
		4:  {CoordinateValue, HipL, 0},
		8:  {CoordinateValue, KneeL, 0},
		9:  {CoordinateSpeed, Pelvis, PelvisTilt},
		16: {CoordinateSpeed, KneeR, 0},
		18: {Quantity: MassCenterPosition, Index: 0},
		23: {Quantity: MassCenterVelocity, Index: 2},
	}
	for i, f := range want {
		if layout[i] != f {
			t.Errorf("field %v: have(%v) want(%v)", i, layout[i], f)
		}
	}

	if err := CompactLayout().Validate(Gait9DoF()); err != nil {
		t.Errorf("validate compact: %v", err)
	}
}

func TestEncode(t *testing.T) {
	m := newFakeModel()
	s, _ := m.InitSystem()
	m.SetActivation(s, 0, 0.25)

	e := NewEncoder(m, DefaultLayout())
	obs := e.Encode(s)

	if obs.Len() != e.Len() {
		t.Fatalf("length: have(%v) want(%v)", obs.Len(), e.Len())
	}

	tests := map[int]float64{
		2:  0.94, // pelvis height
		3:  0.25, // hip_r
		16: 0.0,  // knee_r speed is NaN
		19: 0.94, // center of mass height
	}
	for i, want := range tests {
		if have := obs.AtVec(i); have != want {
			t.Errorf("element %v: have(%v) want(%v)", i, have, want)
		}
	}
	for i := 0; i < obs.Len(); i++ {
		if v := obs.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("element %v is not finite: %v", i, v)
		}
	}

	// Unavailable acceleration is encoded as 0
	acc := NewEncoder(m, Layout{
		{Quantity: MassCenterAcceleration, Index: 0},
		{Quantity: MassCenterAcceleration, Index: 1},
	}).Encode(s)
	if acc.AtVec(0) != 0 || acc.AtVec(1) != 0 {
		t.Errorf("acceleration: have(%v, %v) want(0, 0)", acc.AtVec(0),
			acc.AtVec(1))
	}

	// Encoding does not modify the state
	if a, _ := m.Activation(s, 0); a != 0.25 {
		t.Errorf("activation: have(%v) want(0.25)", a)
	}
}
