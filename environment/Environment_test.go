package environment

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gaitrl/timestep"
)

func TestStepLimit(t *testing.T) {
	limit := NewStepLimit(3)

	for i := 0; i < 3; i++ {
		step := ts.New(ts.Mid, 0.0, 1.0, mat.NewVecDense(1, nil), i)
		if limit.End(&step) {
			t.Errorf("end: step %v ended before limit %v", i, limit.Limit())
		}
		if !step.Mid() {
			t.Errorf("end: step type changed: have(%v) want(Mid)",
				step.StepType)
		}
	}

	step := ts.New(ts.Mid, 0.0, 1.0, mat.NewVecDense(1, nil), 3)
	if !limit.End(&step) {
		t.Errorf("end: step 3 not ended at limit 3")
	}
	if !step.Last() || step.End() != ts.Timeout {
		t.Errorf("end: have(%v, %v) want(Last, Timeout)", step.StepType,
			step.End())
	}
}

func TestBoxSpec(t *testing.T) {
	spec := NewBoxSpec(Action, 3, 0.0, 1.0)

	if spec.Shape.Len() != 3 {
		t.Errorf("shape: have(%v) want(3)", spec.Shape.Len())
	}
	if spec.Cardinality != Continuous {
		t.Errorf("cardinality: have(%v) want(%v)", spec.Cardinality,
			Continuous)
	}

	tests := []struct {
		v    []float64
		want bool
	}{
		{[]float64{0.0, 0.5, 1.0}, true},
		{[]float64{0.0, 0.5, 1.1}, false},
		{[]float64{-0.1, 0.5, 1.0}, false},
	}
	for _, test := range tests {
		if have := spec.Contains(mat.NewVecDense(3, test.v)); have != test.want {
			t.Errorf("contains(%v): have(%v) want(%v)", test.v, have,
				test.want)
		}
	}

	if spec.Contains(mat.NewVecDense(2, nil)) {
		t.Errorf("contains: accepted vector of wrong length")
	}
}

func TestNewSpecPanicsOnMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("newSpec: expected panic on bounds length mismatch")
		}
	}()

	NewSpec(mat.NewVecDense(2, nil), Observation, mat.NewVecDense(1, nil),
		mat.NewVecDense(2, nil), Continuous)
}
