// Package experiment implements functionality for running an experiment
package experiment

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/gaitrl/agent"
	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/environment/envconfig"
	"github.com/samuelfneumann/gaitrl/environment/wrappers"
	"github.com/samuelfneumann/gaitrl/experiment/tracker"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments will track environment TimeSteps, caching each TimeStep
// in RAM to be later saved to disk. The Save() function will then take
// all cached data and save it to disk. This is usually performed after
// an experiment has been run. The Run() method will run all episodes
// until the maximum timestep limit is reached. The RunEpisode()
// function will run a single episode.
//
// In order to save data, Experiments use Trackers. Trackers determine
// which data generated during the experiment is saved. New Trackers can
// be registered with an Experiment through the constructor or through
// an Experiment's Register() function.
type Experiment interface {
	Run() error

	// RunEpisode returns whether or not the maximum timestep limit has
	// been reached
	RunEpisode() (bool, error)

	// Save all tracked data to files in dir
	Save(dir string) ([]string, error)

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment
	Register(t tracker.Tracker)
}

type Type string

const (
	OnlineExp Type = "OnlineExperiment"
)

// AgentConfig is the serializable configuration of an agent
type AgentConfig struct {
	Type       agent.Type `yaml:"type"`
	Activation float64    `yaml:"activation,omitempty"`
}

// Config returns the agent.Config described by a
func (a AgentConfig) Config() (agent.Config, error) {
	switch a.Type {
	case agent.RandomAgent:
		return agent.RandomConfig{}, nil
	case agent.ConstantAgent:
		return agent.ConstantConfig{Activation: a.Activation}, nil
	}
	return nil, fmt.Errorf("config: no such agent type %q", a.Type)
}

// Config represents a configuration of an experiment.
type Config struct {
	Type         Type `yaml:"type"`
	MaxSteps     int  `yaml:"max_steps"`
	EpisodeSteps int  `yaml:"episode_steps"`

	// AutoReset absorbs simulation failures by ending the episode and
	// starting a new one
	AutoReset bool `yaml:"auto_reset"`

	Seed  uint64           `yaml:"seed"`
	Env   envconfig.Config `yaml:"env"`
	Agent AgentConfig      `yaml:"agent"`
}

// DefaultConfig returns a configuration that runs a Random agent on
// the environment of the given task preset
func DefaultConfig(task envconfig.TaskName) (Config, error) {
	env, err := envconfig.Preset(task)
	if err != nil {
		return Config{}, fmt.Errorf("defaultConfig: %w", err)
	}

	return Config{
		Type:      OnlineExp,
		MaxSteps:  10_000,
		AutoReset: true,
		Env:       env,
		Agent:     AgentConfig{Type: agent.RandomAgent},
	}, nil
}

// LoadConfig loads an experiment configuration from a YAML file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %w", err)
	}

	c := Config{Type: OnlineExp, Env: envconfig.Default()}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not parse %v: %w",
			path, err)
	}
	return c, nil
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c Config) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("validate: max steps must be positive: have(%v)",
			c.MaxSteps)
	}
	if c.EpisodeSteps < 0 {
		return fmt.Errorf("validate: episode steps must be non-negative: "+
			"have(%v)", c.EpisodeSteps)
	}

	conf, err := c.Agent.Config()
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// CreateExp creates the experiment described by the Config. If reg is
// not nil, environment metrics are registered with it.
func (c Config) CreateExp(logger *slog.Logger, reg prometheus.Registerer,
	t ...tracker.Tracker) (Experiment, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("createExp: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	gaitEnv, err := c.Env.Create(logger)
	if err != nil {
		return nil, fmt.Errorf("createExp: %w", err)
	}

	var env environment.Environment = gaitEnv
	if reg != nil {
		env = wrappers.NewInstrumented(env, wrappers.NewMetrics(reg))
	}
	if c.AutoReset {
		env = wrappers.NewAutoReset(env, logger)
	}

	conf, _ := c.Agent.Config()
	a, err := conf.CreateAgent(env, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("createExp: could not create agent: %w", err)
	}

	switch c.Type {
	case OnlineExp:
		return NewOnline(env, a, c.MaxSteps, c.EpisodeSteps, logger, t...),
			nil
	}

	return nil, fmt.Errorf("createExp: no such experiment type %v", c.Type)
}
