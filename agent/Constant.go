package agent

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/timestep"
	"github.com/samuelfneumann/gaitrl/utils/floatutils"
)

// Constant implements an agent that always selects the same action.
// An activation of 0 results in the null action.
type Constant struct {
	nonLearner
	evalMode

	action []float64
}

// NewConstant returns a new Constant agent that selects activation for
// each element of its actions. The activation is clipped to the action
// bounds.
func NewConstant(spec environment.Spec, activation float64) (*Constant,
	error) {
	if !floatutils.IsFinite(activation) {
		return nil, fmt.Errorf("newConstant: activation must be finite: "+
			"have(%v)", activation)
	}

	action := make([]float64, spec.Shape.Len())
	for i := range action {
		action[i] = floatutils.Clip(activation, spec.LowerBound.AtVec(i),
			spec.UpperBound.AtVec(i))
	}
	return &Constant{action: action}, nil
}

// SelectAction implements the Policy interface
func (c *Constant) SelectAction(t timestep.TimeStep) *mat.VecDense {
	return mat.NewVecDense(len(c.action), append([]float64(nil), c.action...))
}
