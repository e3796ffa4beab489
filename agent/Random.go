package agent

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/timestep"
)

// Random implements an agent that selects actions uniformly at random
// within the bounds of an action specification. In evaluation mode,
// Random selects the midpoint of the action bounds.
type Random struct {
	nonLearner
	evalMode

	dist     *distmv.Uniform
	midpoint []float64
}

// NewRandom returns a new Random agent for a continuous action
// specification
func NewRandom(spec environment.Spec, seed uint64) (*Random, error) {
	if spec.Cardinality != environment.Continuous {
		return nil, fmt.Errorf("newRandom: cannot select %v actions",
			spec.Cardinality)
	}

	n := spec.Shape.Len()
	bounds := make([]r1.Interval, n)
	midpoint := make([]float64, n)
	for i := range bounds {
		low, high := spec.LowerBound.AtVec(i), spec.UpperBound.AtVec(i)
		if !(low <= high) {
			return nil, fmt.Errorf("newRandom: invalid bounds [%v, %v] at "+
				"index %v", low, high, i)
		}
		bounds[i] = r1.Interval{Min: low, Max: high}
		midpoint[i] = low + (high-low)/2.0
	}

	return &Random{
		dist:     distmv.NewUniform(bounds, rand.NewSource(seed)),
		midpoint: midpoint,
	}, nil
}

// SelectAction implements the Policy interface
func (r *Random) SelectAction(t timestep.TimeStep) *mat.VecDense {
	if r.IsEval() {
		return mat.NewVecDense(len(r.midpoint),
			append([]float64(nil), r.midpoint...))
	}

	action := r.dist.Rand(nil)
	return mat.NewVecDense(len(action), action)
}
