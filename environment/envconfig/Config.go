// Package envconfig provides configuration structs for configuring
// gait environments with default physical parameters and tasks.
// Environment configurations in this package are YAML and JSON
// serializable.
package envconfig

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/environment/gait"
	"github.com/samuelfneumann/gaitrl/simulation/box2dsim"
)

// TaskName stores the tasks that can be configured with this package
type TaskName string

// Tasks available for configuration
const (
	Smooth  TaskName = "Smooth"
	Track   TaskName = "Track"
	Posture TaskName = "Posture"
)

// LayoutName stores the observation layouts that can be configured with
// this package
type LayoutName string

// Layouts available for configuration
const (
	DefaultLayout LayoutName = "default"
	CompactLayout LayoutName = "compact"
)

// DefaultModel is the model definition bundled with box2dsim
const DefaultModel string = "gait9dof18musc"

// Config implements a specific configuration of the gait environment
// and its task
type Config struct {
	Model    string     `yaml:"model" json:"model"`
	Task     TaskConfig `yaml:"task" json:"task"`
	Layout   LayoutName `yaml:"layout" json:"layout"`
	StepSize float64    `yaml:"step_size" json:"step_size"`
	Accuracy float64    `yaml:"accuracy" json:"accuracy"`
	WarmUp   float64    `yaml:"warm_up" json:"warm_up"`
	Gain     float64    `yaml:"gain" json:"gain"`
	Discount float64    `yaml:"discount" json:"discount"`
}

// TaskConfig configures the task of an environment. Fields that do
// not apply to the named task are ignored. Every field is used as is,
// so a zero value configures a zero parameter.
type TaskConfig struct {
	Name      TaskName `yaml:"name" json:"name"`
	Baseline  float64  `yaml:"baseline" json:"baseline"`
	Threshold float64  `yaml:"threshold" json:"threshold"`
	Floor     float64  `yaml:"floor" json:"floor"`
	Cutoff    int      `yaml:"cutoff" json:"cutoff"`
}

// Default returns the default configuration: the bundled gait model
// with the Smooth task
func Default() Config {
	c := gait.DefaultConfig()
	return Config{
		Model: DefaultModel,
		Task: TaskConfig{
			Name:      Smooth,
			Baseline:  gait.SmoothBaseline,
			Threshold: gait.HeightThreshold,
			Floor:     gait.PostureFloor,
			Cutoff:    gait.TrackCutoff,
		},
		Layout:   DefaultLayout,
		StepSize: c.StepSize,
		Accuracy: c.Accuracy,
		WarmUp:   c.WarmUp,
		Gain:     c.Gain,
		Discount: c.Discount,
	}
}

// Preset returns the default configuration for a task. The Track
// preset uses the compact observation layout, a larger step size, and
// a gain of 10.
func Preset(task TaskName) (Config, error) {
	c := Default()
	switch task {
	case Smooth:
		return c, nil

	case Track:
		c.Task.Name = Track
		c.Layout = CompactLayout
		c.StepSize = 0.05
		c.Gain = 10.0
		return c, nil

	case Posture:
		c.Task.Name = Posture
		return c, nil
	}

	return Config{}, fmt.Errorf("preset: no such task %v", task)
}

// Load loads a configuration from a YAML or JSON file. Fields missing
// from the file keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}

	c := Default()
	if isJSON(path) {
		err = json.Unmarshal(data, &c)
	} else {
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load: could not parse %v: %w", path, err)
	}
	return c, nil
}

// Save saves a configuration to a YAML or JSON file, depending on the
// file extension
func (c Config) Save(path string) error {
	var data []byte
	var err error
	if isJSON(path) {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// CreateTask returns the task described by the Config
func (c Config) CreateTask() (gait.Task, error) {
	switch c.Task.Name {
	case Smooth:
		task := gait.NewSmooth()
		task.Baseline = c.Task.Baseline
		task.Threshold = c.Task.Threshold
		return task, nil

	case Track:
		task, err := gait.NewTrack(c.Task.Cutoff)
		if err != nil {
			return nil, fmt.Errorf("createTask: %w", err)
		}
		return task, nil

	case Posture:
		task := gait.NewPosture()
		task.Floor = c.Task.Floor
		task.Threshold = c.Task.Threshold
		return task, nil
	}

	return nil, fmt.Errorf("createTask: no such task %q", c.Task.Name)
}

// GaitConfig returns the gait.Config described by the Config
func (c Config) GaitConfig(logger *slog.Logger) (gait.Config, error) {
	gc := gait.DefaultConfig()
	gc.StepSize = c.StepSize
	gc.Accuracy = c.Accuracy
	gc.WarmUp = c.WarmUp
	gc.Gain = c.Gain
	gc.Discount = c.Discount
	gc.Logger = logger

	switch c.Layout {
	case DefaultLayout, "":
		gc.Layout = gait.DefaultLayout()
	case CompactLayout:
		gc.Layout = gait.CompactLayout()
	default:
		return gait.Config{}, fmt.Errorf("gaitConfig: no such layout %q",
			c.Layout)
	}

	if err := gc.Validate(); err != nil {
		return gait.Config{}, fmt.Errorf("gaitConfig: %w", err)
	}
	return gc, nil
}

// Create returns the environment described by the Config. The
// environment must be reset before it is used.
func (c Config) Create(logger *slog.Logger) (*gait.Env, error) {
	task, err := c.CreateTask()
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	gc, err := c.GaitConfig(logger)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	model, err := box2dsim.Load(c.Model)
	if err != nil {
		return nil, fmt.Errorf("create: %w: %v", environment.ErrInitialization,
			err)
	}

	env, err := gait.New(model, task, gc)
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	return env, nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
