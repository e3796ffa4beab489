package experiment

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/samuelfneumann/gaitrl/agent"
	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/experiment/tracker"
	ts "github.com/samuelfneumann/gaitrl/timestep"
)

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed.
type Online struct {
	environment.Environment
	agent.Agent

	id     uuid.UUID
	logger *slog.Logger

	maxSteps     int
	currentSteps int
	episodes     int

	// ender truncates episodes longer than some number of steps, and is
	// nil if episodes are not truncated
	ender    environment.Ender
	trackers []tracker.Tracker
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The steps parameter determines how
// many timesteps the experiment is run for. If episodeSteps is
// positive, episodes are ended with timestep.Timeout after that many
// steps. The t parameter is a slice of tracker.Tracker which determine
// what data is saved.
func NewOnline(e environment.Environment, a agent.Agent, steps,
	episodeSteps int, logger *slog.Logger, t ...tracker.Tracker) *Online {
	if logger == nil {
		logger = slog.Default()
	}

	var ender environment.Ender
	if episodeSteps > 0 {
		ender = environment.NewStepLimit(episodeSteps)
	}

	id := uuid.New()
	return &Online{
		Environment: e,
		Agent:       a,
		id:          id,
		logger:      logger.With("run", id.String()),
		maxSteps:    steps,
		ender:       ender,
		trackers:    t,
	}
}

// ID returns the unique identifier of the run
func (o *Online) ID() uuid.UUID {
	return o.id
}

// Steps returns the number of steps taken so far
func (o *Online) Steps() int {
	return o.currentSteps
}

// Episodes returns the number of episodes started so far
func (o *Online) Episodes() int {
	return o.episodes
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RunEpisode runs a single episode of the experiment
func (o *Online) RunEpisode() (bool, error) {
	step, err := o.Environment.Reset()
	if err != nil {
		return false, fmt.Errorf("runEpisode: %w", err)
	}
	o.episodes++

	if err := o.Agent.ObserveFirst(step); err != nil {
		return false, fmt.Errorf("runEpisode: %w", err)
	}
	o.track(step)

	episodeReturn := 0.0
	for !step.Last() && o.currentSteps < o.maxSteps {
		o.currentSteps++

		// Select action, step in environment
		action := o.Agent.SelectAction(step)
		step, _, err = o.Environment.Step(action)
		if err != nil {
			return false, fmt.Errorf("runEpisode: step %v: %w",
				o.currentSteps, err)
		}
		if o.ender != nil && !step.Last() {
			o.ender.End(&step)
		}
		episodeReturn += step.Reward

		o.track(step)

		// Observe the timestep and step the agent
		if err := o.Agent.Observe(action, step); err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}
		if err := o.Agent.Step(); err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}
	}

	if step.Last() {
		o.Agent.EndEpisode()
		o.logger.Info("episode finished", "episode", o.episodes,
			"length", step.Number, "return", episodeReturn,
			"end", step.End().String())
	}

	// Return whether or not the max timestep limit has been reached
	return o.currentSteps >= o.maxSteps, nil
}

// Run runs the entire experiment for all timesteps
func (o *Online) Run() error {
	o.logger.Info("starting experiment", "max_steps", o.maxSteps)

	for ended := false; !ended; {
		var err error
		if ended, err = o.RunEpisode(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}

	o.logger.Info("experiment finished", "steps", o.currentSteps,
		"episodes", o.episodes)
	return nil
}

// Save saves all the data cached by the Trackers to files in dir. Files
// are named by the run identifier and the Tracker name. Save returns
// the names of the saved files.
func (o *Online) Save(dir string) ([]string, error) {
	files := make([]string, 0, len(o.trackers))
	for _, t := range o.trackers {
		filename := filepath.Join(dir, fmt.Sprintf("%v_%v.gob", o.id,
			t.Name()))
		if err := t.Save(filename); err != nil {
			return files, fmt.Errorf("save: %w", err)
		}
		files = append(files, filename)
	}
	return files, nil
}

// track tracks the current timestep by caching its data in each Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tr := range o.trackers {
		tr.Track(t)
	}
}

var _ Experiment = (*Online)(nil)
