// Package gait implements an environment in which an agent activates the
// muscles of a planar musculoskeletal model.
//
// Each step, the agent sets the activation of every muscle of the model,
// after which the model is simulated for a fixed step size. Observations
// are read from the simulated state through a declared Layout, and
// rewards and episode termination are determined by a Task. Before
// control is given to the agent at the start of each episode, the model
// is simulated for a short warm-up period with all muscles deactivated
// so that it can settle.
package gait

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/simulation"
	ts "github.com/samuelfneumann/gaitrl/timestep"
	"github.com/samuelfneumann/gaitrl/utils/floatutils"
)

// Observation bounds. Observations are effectively unbounded.
const (
	ObservationMin float64 = -1e5
	ObservationMax float64 = 1e5
)

// Config configures an Env
type Config struct {
	// StepSize is the simulated duration of a single step
	StepSize float64

	// Accuracy is the integration accuracy used to advance the model
	Accuracy float64

	// WarmUp is the simulated duration of the zero-activation warm-up
	// that starts every episode
	WarmUp float64

	// Gain scales each action element into a muscle activation
	Gain float64

	Discount float64

	// Schema declares the joints that the Layout and Task read from
	Schema Schema

	// Layout declares the observation vector
	Layout Layout

	Logger *slog.Logger
}

// DefaultConfig returns the default configuration of an Env for the
// gait9dof18musc model
func DefaultConfig() Config {
	return Config{
		StepSize: 0.01,
		Accuracy: 1e-3,
		WarmUp:   0.2,
		Gain:     1.0,
		Discount: 0.99,
		Schema:   Gait9DoF(),
		Layout:   DefaultLayout(),
	}
}

// Validate ensures that a Config is well-formed
func (c Config) Validate() error {
	if !(c.StepSize > 0) || math.IsInf(c.StepSize, 0) {
		return fmt.Errorf("step size must be positive: have(%v)", c.StepSize)
	}
	if !(c.Accuracy > 0) || math.IsInf(c.Accuracy, 0) {
		return fmt.Errorf("accuracy must be positive: have(%v)", c.Accuracy)
	}
	if !(c.WarmUp >= 0) || math.IsInf(c.WarmUp, 0) {
		return fmt.Errorf("warm-up must be non-negative: have(%v)", c.WarmUp)
	}
	if !floatutils.IsFinite(c.Gain) {
		return fmt.Errorf("gain must be finite: have(%v)", c.Gain)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("discount must be in [0, 1]: have(%v)", c.Discount)
	}
	return nil
}

// WarmUpSteps returns the number of zero-activation steps taken at the
// start of each episode
func (c Config) WarmUpSteps() int {
	return int(math.Floor(c.WarmUp/c.StepSize)) + 1
}

// Env implements the gait environment. An Env owns its model state and
// is not safe for concurrent use. Independent environments must use
// independent models.
type Env struct {
	model   simulation.Model
	task    Task
	encoder *Encoder
	config  Config
	logger  *slog.Logger

	actuators int

	// baseline is the initial state of the model, constructed once and
	// copied at the start of each episode
	baseline simulation.State
	state    simulation.State

	episode         EpisodeContext
	currentTimeStep ts.TimeStep
}

// New returns a new gait environment. The environment must be reset
// before it is stepped. New returns an error wrapping
// environment.ErrInitialization if the model does not match the
// configured schema or the configuration is invalid.
func New(model simulation.Model, task Task, c Config) (*Env, error) {
	if model == nil || task == nil {
		return nil, fmt.Errorf("newGait: %w: model and task must be non-nil",
			environment.ErrInitialization)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newGait: %w: %v",
			environment.ErrInitialization, err)
	}
	if err := c.Schema.Validate(model.Joints()); err != nil {
		return nil, fmt.Errorf("newGait: %w", err)
	}
	if err := c.Layout.Validate(c.Schema); err != nil {
		return nil, fmt.Errorf("newGait: %w", err)
	}
	if err := task.Validate(c.Schema); err != nil {
		return nil, fmt.Errorf("newGait: %w", err)
	}

	actuators := len(model.Actuators())
	if actuators == 0 {
		return nil, fmt.Errorf("newGait: %w: model %v has no actuators",
			environment.ErrInitialization, model.Name())
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("model", model.Name(), "task", task.String())

	return &Env{
		model:     model,
		task:      task,
		encoder:   NewEncoder(model, c.Layout),
		config:    c,
		logger:    logger,
		actuators: actuators,
	}, nil
}

// Reset resets the environment to a new episode and returns the first
// timestep of the episode. The first call to Reset constructs the
// baseline state of the model, which later calls copy.
//
// If Reset fails, the environment keeps its previous state. An
// environment that was never reset successfully remains uninitialized,
// and the episode of any other environment is over.
func (e *Env) Reset() (ts.TimeStep, error) {
	state, episode, err := e.newEpisodeState()
	if err != nil {
		if e.episode.Phase != Uninitialized {
			e.episode.Phase = Terminated
		}
		return ts.TimeStep{}, fmt.Errorf("reset: %w", err)
	}
	e.state = state
	e.episode = episode

	firstStep := ts.New(ts.First, 0.0, e.config.Discount,
		e.encoder.Encode(e.state), 0)
	e.currentTimeStep = firstStep

	return firstStep, nil
}

// newEpisodeState returns the state and context of a new episode after
// the warm-up
func (e *Env) newEpisodeState() (simulation.State, EpisodeContext, error) {
	if e.baseline == nil {
		baseline, err := e.model.InitSystem()
		if err != nil {
			return nil, EpisodeContext{}, fmt.Errorf("%w: %v",
				environment.ErrInitialization, err)
		}
		if baseline == nil {
			return nil, EpisodeContext{}, fmt.Errorf("%w: model %v "+
				"produced no baseline state", environment.ErrInitialization,
				e.model.Name())
		}
		e.baseline = baseline
		e.logger.Debug("constructed baseline state")
	}

	state := e.model.CopyState(e.baseline)
	if err := e.model.EquilibrateMuscles(state); err != nil {
		return nil, EpisodeContext{}, fmt.Errorf("%w: %v",
			environment.ErrInitialization, err)
	}

	settling := newEpisode(e.config.StepSize, e.config.Accuracy)
	if err := e.warmUp(state, &settling); err != nil {
		return nil, EpisodeContext{}, err
	}

	// The warm-up does not count towards the episode
	episode := newEpisode(e.config.StepSize, e.config.Accuracy)
	episode.Time = state.Time()
	return state, episode, nil
}

// warmUp simulates the model with all muscles deactivated. Tasks are
// evaluated as in a regular step, but never end the warm-up.
func (e *Env) warmUp(state simulation.State, ep *EpisodeContext) error {
	steps := e.config.WarmUpSteps()
	for i := 0; i < steps; i++ {
		for j := 0; j < e.actuators; j++ {
			if err := e.model.SetActivation(state, j, 0.0); err != nil {
				return fmt.Errorf("warmUp: %v", err)
			}
		}

		if err := e.advance(state, ep); err != nil {
			return fmt.Errorf("warmUp: step %v: %w", i, err)
		}

		t := ts.New(ts.Mid, 0.0, e.config.Discount, nil, ep.Step)
		acc, err := e.task.Evaluate(stateReader{e.model, state}, *ep, &t)
		if err != nil {
			return fmt.Errorf("warmUp: %v", err)
		}
		ep.Accumulator = acc
		if t.Last() {
			e.logger.Warn("episode would have ended during warm-up",
				"step", i, "end", t.End())
		}
	}

	e.logger.Debug("warm-up complete", "steps", steps, "time", state.Time())
	return nil
}

// advance integrates state over the next step of episode ep and
// increments the step index
func (e *Env) advance(state simulation.State, ep *EpisodeContext) error {
	t0, t1 := ep.interval()
	if err := e.model.Integrate(state, t0, t1, e.config.Accuracy); err != nil {
		if errors.Is(err, simulation.ErrNumericInstability) {
			return err
		}
		return fmt.Errorf("%w: %v", environment.ErrNumericInstability, err)
	}

	ep.Step++
	ep.Time = state.Time()
	return nil
}

// Step takes one step in the environment, setting the activation of
// muscle i to Gain * action[i]. Step returns the next timestep and
// whether the episode is over.
//
// Step returns an error wrapping environment.ErrNotInitialized before
// the first Reset, environment.ErrEpisodeOver once the episode has
// ended, and environment.ErrInvalidAction if the action has the wrong
// length or non-finite elements. If the simulation cannot be advanced,
// Step returns the last timestep of the episode along with an error
// wrapping environment.ErrNumericInstability. Any other failure after
// the action was validated also ends the episode.
func (e *Env) Step(action *mat.VecDense) (ts.TimeStep, bool, error) {
	switch e.episode.Phase {
	case Uninitialized:
		return ts.TimeStep{}, false, fmt.Errorf("step: %w",
			environment.ErrNotInitialized)

	case Terminated:
		return e.currentTimeStep, true, fmt.Errorf("step: %w",
			environment.ErrEpisodeOver)
	}

	if err := e.validate(action); err != nil {
		return ts.TimeStep{}, false, fmt.Errorf("step: %w", err)
	}

	for i := 0; i < e.actuators; i++ {
		err := e.model.SetActivation(e.state, i, e.config.Gain*action.AtVec(i))
		if err != nil {
			return e.fail(e.episode.Step+1, err)
		}
	}

	if err := e.advance(e.state, &e.episode); err != nil {
		return e.fail(e.episode.Step+1, err)
	}

	t := ts.New(ts.Mid, 0.0, e.config.Discount, e.encoder.Encode(e.state),
		e.episode.Step)
	acc, err := e.task.Evaluate(stateReader{e.model, e.state}, e.episode, &t)
	if err != nil {
		return e.fail(e.episode.Step, err)
	}

	e.episode.Accumulator = acc
	e.episode.Return += t.Reward
	e.episode.Phase = Running
	if t.Last() {
		e.episode.Phase = Terminated
		e.logger.Debug("episode ended", "steps", e.episode.Step,
			"return", e.episode.Return, "end", t.End())
	}
	e.currentTimeStep = t

	return t, t.Last(), nil
}

// fail ends the episode after step number n could not be completed and
// returns its last timestep
func (e *Env) fail(n int, err error) (ts.TimeStep, bool, error) {
	e.episode.Phase = Terminated
	t := ts.New(ts.Last, 0.0, e.config.Discount, e.encoder.Encode(e.state), n)
	t.SetEnd(ts.Failure)
	e.currentTimeStep = t

	e.logger.Warn("step failed", "step", n, "error", err)
	return t, true, fmt.Errorf("step: %w", err)
}

// validate returns an error wrapping environment.ErrInvalidAction if
// action cannot be taken
func (e *Env) validate(action *mat.VecDense) error {
	if action == nil {
		return fmt.Errorf("%w: nil action", environment.ErrInvalidAction)
	}
	if action.Len() != e.actuators {
		return fmt.Errorf("%w: invalid number of action dimensions "+
			"\n\thave(%v) \n\twant(%v)", environment.ErrInvalidAction,
			action.Len(), e.actuators)
	}
	for i := 0; i < action.Len(); i++ {
		if !floatutils.IsFinite(action.AtVec(i)) {
			return fmt.Errorf("%w: non-finite element %v at index %v",
				environment.ErrInvalidAction, action.AtVec(i), i)
		}
	}
	return nil
}

// CurrentTimeStep returns the last timestep returned by the environment
func (e *Env) CurrentTimeStep() ts.TimeStep {
	return e.currentTimeStep
}

// Episode returns the context of the current episode
func (e *Env) Episode() EpisodeContext {
	return e.episode
}

// Task returns the task of the environment
func (e *Env) Task() Task {
	return e.task
}

// Model returns the model simulated by the environment
func (e *Env) Model() simulation.Model {
	return e.model
}

// Layout returns the observation layout of the environment
func (e *Env) Layout() Layout {
	return e.encoder.Layout()
}

// ActionSpec returns the action specification of the environment.
// Actions have one element in [0, 1] for each muscle.
func (e *Env) ActionSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Action, e.actuators, 0.0, 1.0)
}

// ObservationSpec returns the observation specification of the
// environment
func (e *Env) ObservationSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Observation, e.encoder.Len(),
		ObservationMin, ObservationMax)
}

// DiscountSpec returns the discount specification of the environment
func (e *Env) DiscountSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Discount, 1, 0.0, 1.0)
}

// RewardSpec returns the reward specification of the environment
func (e *Env) RewardSpec() environment.Spec {
	return environment.NewBoxSpec(environment.Reward, 1, math.Inf(-1),
		math.Inf(1))
}

// Render does nothing. The gait environment has no visualization.
func (e *Env) Render(w io.Writer) error {
	return nil
}

// Ensure Env implements environment.Environment
var _ environment.Environment = (*Env)(nil)
