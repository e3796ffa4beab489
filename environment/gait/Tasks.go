package gait

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/simulation"
	ts "github.com/samuelfneumann/gaitrl/timestep"
	"github.com/samuelfneumann/gaitrl/utils/floatutils"
)

// Default task parameters
const (
	SmoothBaseline  float64 = 2.0
	HeightThreshold float64 = 0.8
	PostureFloor    float64 = 0.9
	TrackCutoff     int     = 500
)

// Reader reads the quantities of a simulation state that tasks need
type Reader interface {
	CoordinateValue(joint string, coordinate int) (float64, error)
	MassCenterAcceleration() r3.Vec
}

// stateReader implements Reader for a model and a state
type stateReader struct {
	model simulation.Model
	state simulation.State
}

func (r stateReader) CoordinateValue(joint string, coordinate int) (float64,
	error) {
	return r.model.CoordinateValue(r.state, joint, coordinate)
}

func (r stateReader) MassCenterAcceleration() r3.Vec {
	return r.model.MassCenterAcceleration(r.state)
}

// Task implements the reward and termination scheme of an environment.
// Tasks are pure functions of the state read through r and the
// episode context, and keep no state of their own.
type Task interface {
	fmt.Stringer

	// Evaluate sets the reward of t, the timestep reached after step
	// ep.Step of the episode. If the episode is over, Evaluate sets the
	// StepType of t to timestep.Last along with its end type. Evaluate
	// returns the new value of the episode's accumulator.
	Evaluate(r Reader, ep EpisodeContext, t *ts.TimeStep) (float64, error)

	// Validate ensures that the task only reads coordinates declared by
	// the schema
	Validate(s Schema) error
}

// Coordinate names a single coordinate of a joint
type Coordinate struct {
	Joint string
	Index int
}

func (c Coordinate) validate(s Schema) error {
	if !s.has(c.Joint, c.Index) {
		return fmt.Errorf("%w: task reads undeclared coordinate %v[%d]",
			environment.ErrInitialization, c.Joint, c.Index)
	}
	return nil
}

// Smooth rewards smooth motion of the whole-body center of mass. The
// reward is a baseline minus the squared norm of the center of mass
// acceleration. Episodes end when the height coordinate falls strictly
// below a threshold. Smooth never ends episodes on a step limit.
type Smooth struct {
	Baseline  float64
	Threshold float64
	Height    Coordinate
}

// NewSmooth returns a new Smooth task with a baseline of 2 that ends
// when the pelvis is lower than 0.8
func NewSmooth() *Smooth {
	return &Smooth{
		Baseline:  SmoothBaseline,
		Threshold: HeightThreshold,
		Height:    Coordinate{Pelvis, PelvisTY},
	}
}

// Evaluate implements the Task interface. NaN acceleration components,
// which models report before the first integration, contribute nothing
// to the penalty. An infinite component, or a penalty too large to
// represent, gives the largest finite penalty.
func (s *Smooth) Evaluate(r Reader, ep EpisodeContext,
	t *ts.TimeStep) (float64, error) {
	acc := r.MassCenterAcceleration()
	penalty := 0.0
	for _, a := range []float64{acc.X, acc.Y, acc.Z} {
		if !math.IsNaN(a) {
			penalty += a * a
		}
	}
	if !floatutils.IsFinite(penalty) {
		penalty = math.MaxFloat64
	}
	t.Reward = s.Baseline - penalty

	height, err := r.CoordinateValue(s.Height.Joint, s.Height.Index)
	if err != nil {
		return 0, fmt.Errorf("evaluate: %v", err)
	}
	if height < s.Threshold {
		t.StepType = ts.Last
		t.SetEnd(ts.TerminalStateReached)
	}

	return ep.Accumulator, nil
}

// Validate implements the Task interface
func (s *Smooth) Validate(schema Schema) error {
	return s.Height.validate(schema)
}

func (s *Smooth) String() string {
	return fmt.Sprintf("Smooth(baseline=%v, threshold=%v)", s.Baseline,
		s.Threshold)
}

// Track rewards the cumulative value of a tracked coordinate, by
// default the forward translation of the pelvis. The reward at step k
// is the sum of the tracked coordinate sampled after each of the first
// k steps. Episodes end once a step limit is reached.
type Track struct {
	Tracked   Coordinate
	stepLimit environment.StepLimit
}

// NewTrack returns a new Track task that tracks the forward pelvis
// translation and ends episodes after cutoff steps
func NewTrack(cutoff int) (*Track, error) {
	if cutoff <= 0 {
		return nil, fmt.Errorf("newTrack: cutoff must be positive: have(%v)",
			cutoff)
	}
	return &Track{
		Tracked:   Coordinate{Pelvis, PelvisTX},
		stepLimit: environment.NewStepLimit(cutoff),
	}, nil
}

// Cutoff returns the number of steps after which episodes end
func (tr *Track) Cutoff() int {
	return tr.stepLimit.Limit()
}

// Evaluate implements the Task interface
func (tr *Track) Evaluate(r Reader, ep EpisodeContext,
	t *ts.TimeStep) (float64, error) {
	value, err := r.CoordinateValue(tr.Tracked.Joint, tr.Tracked.Index)
	if err != nil {
		return 0, fmt.Errorf("evaluate: %v", err)
	}

	accumulator := ep.Accumulator + value
	t.Reward = accumulator
	tr.stepLimit.End(t)

	return accumulator, nil
}

// Validate implements the Task interface
func (tr *Track) Validate(schema Schema) error {
	return tr.Tracked.validate(schema)
}

func (tr *Track) String() string {
	return fmt.Sprintf("Track(%v[%d], cutoff=%v)", tr.Tracked.Joint,
		tr.Tracked.Index, tr.Cutoff())
}

// Posture rewards keeping the pelvis up. Each step adds the pelvis
// height, but no less than a floor, to an accumulator which is returned
// as the reward. Episodes end when the height falls strictly below a
// threshold.
type Posture struct {
	Floor     float64
	Threshold float64
	Height    Coordinate
}

// NewPosture returns a new Posture task with a floor of 0.9 that ends
// when the pelvis is lower than 0.8
func NewPosture() *Posture {
	return &Posture{
		Floor:     PostureFloor,
		Threshold: HeightThreshold,
		Height:    Coordinate{Pelvis, PelvisTY},
	}
}

// Evaluate implements the Task interface
func (p *Posture) Evaluate(r Reader, ep EpisodeContext,
	t *ts.TimeStep) (float64, error) {
	height, err := r.CoordinateValue(p.Height.Joint, p.Height.Index)
	if err != nil {
		return 0, fmt.Errorf("evaluate: %v", err)
	}

	accumulator := ep.Accumulator + math.Max(height, p.Floor)
	t.Reward = accumulator

	if height < p.Threshold {
		t.StepType = ts.Last
		t.SetEnd(ts.TerminalStateReached)
	}
	return accumulator, nil
}

// Validate implements the Task interface
func (p *Posture) Validate(schema Schema) error {
	return p.Height.validate(schema)
}

func (p *Posture) String() string {
	return fmt.Sprintf("Posture(floor=%v, threshold=%v)", p.Floor,
		p.Threshold)
}
