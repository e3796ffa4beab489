package wrappers

import (
	"fmt"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gaitrl/environment"
	ts "github.com/samuelfneumann/gaitrl/timestep"
)

// scriptedEnv is an environment whose episodes last a fixed number of
// steps, each with a reward of 1. Steps listed in fail return an
// error wrapping environment.ErrNumericInstability.
type scriptedEnv struct {
	length int
	fail   map[int]bool

	resets int
	step   int
	last   ts.TimeStep
}

func (e *scriptedEnv) Reset() (ts.TimeStep, error) {
	e.resets++
	e.step = 0
	e.last = ts.New(ts.First, 0, 1, mat.NewVecDense(1, nil), 0)
	return e.last, nil
}

func (e *scriptedEnv) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	if action.Len() != 1 {
		return ts.TimeStep{}, false, fmt.Errorf("step: %w",
			environment.ErrInvalidAction)
	}

	e.step++
	if e.fail[e.step] {
		t := ts.New(ts.Last, 0, 1, mat.NewVecDense(1, nil), e.step)
		t.SetEnd(ts.Failure)
		e.last = t
		return t, true, fmt.Errorf("step: %w",
			environment.ErrNumericInstability)
	}

	t := ts.New(ts.Mid, 1.0, 1, mat.NewVecDense(1, nil), e.step)
	if e.step >= e.length {
		t.StepType = ts.Last
		t.SetEnd(ts.Timeout)
	}
	e.last = t
	return t, t.Last(), nil
}

func (e *scriptedEnv) CurrentTimeStep() ts.TimeStep { return e.last }

func (e *scriptedEnv) RewardSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Reward, 1, -1, 1)
}

func (e *scriptedEnv) DiscountSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Discount, 1, 0, 1)
}

func (e *scriptedEnv) ObservationSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Observation, 1, -1, 1)
}

func (e *scriptedEnv) ActionSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Action, 1, 0, 1)
}

func (e *scriptedEnv) Render(w io.Writer) error { return nil }

func TestInstrumented(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	env := NewInstrumented(&scriptedEnv{length: 3, fail: map[int]bool{}}, m)
	action := mat.NewVecDense(1, []float64{0.5})

	for ep := 0; ep < 2; ep++ {
		_, err := env.Reset()
		require.NoError(t, err)

		done := false
		for !done {
			_, done, err = env.Step(action)
			require.NoError(t, err)
		}
	}

	_, _, err := env.Step(mat.NewVecDense(2, nil))
	assert.ErrorIs(t, err, environment.ErrInvalidAction)

	assert.Equal(t, 6.0, testutil.ToFloat64(m.StepsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResetsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(
		m.EpisodesTotal.WithLabelValues("Timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.ErrorsTotal.WithLabelValues("invalid_action")))
}

func TestInstrumentedFailure(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	env := NewInstrumented(&scriptedEnv{length: 5, fail: map[int]bool{2: true}},
		m)

	_, err := env.Reset()
	require.NoError(t, err)

	action := mat.NewVecDense(1, []float64{0.5})
	_, _, err = env.Step(action)
	require.NoError(t, err)
	_, done, err := env.Step(action)
	assert.True(t, done)
	assert.ErrorIs(t, err, environment.ErrNumericInstability)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.ErrorsTotal.WithLabelValues("numeric_instability")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.EpisodesTotal.WithLabelValues("Failure")))
}

func TestAutoReset(t *testing.T) {
	inner := &scriptedEnv{length: 5, fail: map[int]bool{2: true}}
	env := NewAutoReset(inner, nil)
	action := mat.NewVecDense(1, []float64{0.5})

	_, err := env.Reset()
	require.NoError(t, err)
	require.Equal(t, 1, inner.resets)

	_, _, err = env.Step(action)
	require.NoError(t, err)

	step, done, err := env.Step(action)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, ts.Failure, step.End())
	assert.Equal(t, 1, env.Failures())
	assert.Equal(t, 2, inner.resets)

	// The episode started after the failure is returned without another
	// reset of the wrapped environment
	first, err := env.Reset()
	require.NoError(t, err)
	assert.True(t, first.First())
	assert.Equal(t, 2, inner.resets)

	// Other errors are not absorbed
	_, _, err = env.Step(mat.NewVecDense(3, nil))
	assert.ErrorIs(t, err, environment.ErrInvalidAction)
}
