package agent

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/timestep"
)

func TestRandomWithinBounds(t *testing.T) {
	spec := environment.NewBoxSpec(environment.Action, 18, 0.0, 1.0)
	r, err := NewRandom(spec, 1)
	if err != nil {
		t.Fatalf("newRandom: %v", err)
	}

	step := timestep.New(timestep.First, 0, 1, mat.NewVecDense(1, nil), 0)
	for i := 0; i < 100; i++ {
		action := r.SelectAction(step)
		if !spec.Contains(action) {
			t.Fatalf("selectAction: action out of bounds: %v",
				mat.Formatted(action.T()))
		}
	}

	r.Eval()
	action := r.SelectAction(step)
	for i := 0; i < action.Len(); i++ {
		if action.AtVec(i) != 0.5 {
			t.Errorf("eval action %v: have(%v) want(0.5)", i,
				action.AtVec(i))
		}
	}
}

func TestRandomIsSeeded(t *testing.T) {
	spec := environment.NewBoxSpec(environment.Action, 4, 0.0, 1.0)
	step := timestep.New(timestep.First, 0, 1, mat.NewVecDense(1, nil), 0)

	r1, _ := NewRandom(spec, 42)
	r2, _ := NewRandom(spec, 42)
	for i := 0; i < 10; i++ {
		a1, a2 := r1.SelectAction(step), r2.SelectAction(step)
		if !mat.Equal(a1, a2) {
			t.Fatalf("selectAction: same seed produced different actions")
		}
	}
}

func TestConstant(t *testing.T) {
	spec := environment.NewBoxSpec(environment.Action, 3, 0.0, 1.0)
	step := timestep.New(timestep.First, 0, 1, mat.NewVecDense(1, nil), 0)

	c, err := NewConstant(spec, 1.5)
	if err != nil {
		t.Fatalf("newConstant: %v", err)
	}

	action := c.SelectAction(step)
	action.SetVec(0, 0.0)
	action = c.SelectAction(step)
	for i := 0; i < action.Len(); i++ {
		if action.AtVec(i) != 1.0 {
			t.Errorf("action %v: have(%v) want(1.0)", i, action.AtVec(i))
		}
	}
}

func TestConfig(t *testing.T) {
	for _, typ := range []Type{RandomAgent, ConstantAgent} {
		c, err := NewConfig(typ)
		if err != nil {
			t.Fatalf("newConfig: %v", err)
		}
		if c.Type() != typ {
			t.Errorf("type: have(%v) want(%v)", c.Type(), typ)
		}
	}

	if _, err := NewConfig("DeepQ"); err == nil {
		t.Errorf("newConfig: accepted unknown type")
	}
	if err := (ConstantConfig{Activation: 2}).Validate(); err == nil {
		t.Errorf("validate: accepted activation 2")
	}
}
