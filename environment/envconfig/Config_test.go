package envconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/gaitrl/environment"
	"github.com/samuelfneumann/gaitrl/environment/gait"
)

func TestSaveLoad(t *testing.T) {
	for _, name := range []string{"env.yaml", "env.json"} {
		t.Run(name, func(t *testing.T) {
			c, err := Preset(Track)
			require.NoError(t, err)
			c.Task.Cutoff = 42

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, c.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, c, loaded)
		})
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gain: 3.5\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Gain = 3.5
	assert.Equal(t, want, c)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestCreateTask(t *testing.T) {
	c := Default()
	c.Task.Threshold = 0.5
	task, err := c.CreateTask()
	require.NoError(t, err)
	require.IsType(t, &gait.Smooth{}, task)
	assert.Equal(t, 0.5, task.(*gait.Smooth).Threshold)

	c, err = Preset(Track)
	require.NoError(t, err)
	task, err = c.CreateTask()
	require.NoError(t, err)
	require.IsType(t, &gait.Track{}, task)
	assert.Equal(t, gait.TrackCutoff, task.(*gait.Track).Cutoff())

	c, err = Preset(Posture)
	require.NoError(t, err)
	task, err = c.CreateTask()
	require.NoError(t, err)
	assert.IsType(t, &gait.Posture{}, task)

	c.Task.Name = "Run"
	_, err = c.CreateTask()
	assert.Error(t, err)

	c, err = Preset(Track)
	require.NoError(t, err)
	c.Task.Cutoff = 0
	_, err = c.CreateTask()
	assert.Error(t, err)
}

func TestCreateTaskZeroParameters(t *testing.T) {
	c := Default()
	c.Task.Baseline = 0
	c.Task.Threshold = 0
	task, err := c.CreateTask()
	require.NoError(t, err)
	require.IsType(t, &gait.Smooth{}, task)
	assert.Equal(t, 0.0, task.(*gait.Smooth).Baseline)
	assert.Equal(t, 0.0, task.(*gait.Smooth).Threshold)

	c.Task.Name = Posture
	c.Task.Floor = 0
	task, err = c.CreateTask()
	require.NoError(t, err)
	require.IsType(t, &gait.Posture{}, task)
	assert.Equal(t, 0.0, task.(*gait.Posture).Floor)
	assert.Equal(t, 0.0, task.(*gait.Posture).Threshold)

	_, err = Preset("Run")
	assert.Error(t, err)
}

func TestGaitConfig(t *testing.T) {
	c, err := Preset(Track)
	require.NoError(t, err)

	gc, err := c.GaitConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 10.0, gc.Gain)
	assert.Equal(t, 0.05, gc.StepSize)
	assert.Len(t, gc.Layout, 4)

	c.Layout = "wide"
	_, err = c.GaitConfig(nil)
	assert.Error(t, err)

	c = Default()
	c.StepSize = -1
	_, err = c.GaitConfig(nil)
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	env, err := Default().Create(nil)
	require.NoError(t, err)

	assert.Equal(t, 18, env.ActionSpec().Shape.Len())
	assert.Equal(t, 24, env.ObservationSpec().Shape.Len())

	first, err := env.Reset()
	require.NoError(t, err)
	assert.True(t, first.First())
	assert.Equal(t, 24, first.Observation.Len())

	for _, model := range []string{"no_such_model",
		filepath.Join(t.TempDir(), "model.yaml")} {
		c := Default()
		c.Model = model
		_, err = c.Create(nil)
		assert.ErrorIs(t, err, environment.ErrInitialization)
	}

	var _ environment.Environment = env
}
