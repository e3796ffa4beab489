package box2dsim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func gaitDefinition(t *testing.T) Definition {
	t.Helper()

	def, err := LoadDefinition("gait9dof18musc.yaml")
	require.NoError(t, err)
	return def
}

func TestLoadDefinitionFromDisk(t *testing.T) {
	def := gaitDefinition(t)
	def.Name = "copy"

	data, err := yaml.Marshal(def)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "copy.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := LoadDefinition(path)
	require.NoError(t, err)
	assert.Equal(t, "copy", loaded.Name)
	assert.Len(t, loaded.Muscles, 18)
}

func TestLoadDefinitionParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bodies: [\n"), 0o644))

	_, err := LoadDefinition(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(d *Definition){
		"no name":       func(d *Definition) { d.Name = "" },
		"no bodies":     func(d *Definition) { d.Bodies = nil },
		"no ground":     func(d *Definition) { d.Ground.HalfWidth = 0 },
		"zero mass":     func(d *Definition) { d.Bodies[1].Mass = 0 },
		"bad origin":    func(d *Definition) { d.Bodies[1].Origin = []float64{0} },
		"duplicate":     func(d *Definition) { d.Bodies[2].Name = d.Bodies[1].Name },
		"unknown kind":  func(d *Definition) { d.Joints[1].Kind = "ball" },
		"no parent":     func(d *Definition) { d.Joints[1].Parent = "torso" },
		"bad range":     func(d *Definition) { d.Joints[1].Range = []float64{1, -1} },
		"two roots":     func(d *Definition) { d.Joints[1].Kind = "planar"; d.Joints[1].Parent = Ground },
		"detached body": func(d *Definition) { d.Joints = d.Joints[:len(d.Joints)-1] },
		"muscle force":  func(d *Definition) { d.Muscles[0].MaxForce = 0 },
		"muscle joint":  func(d *Definition) { d.Muscles[0].MomentArms[0].Joint = "ground_pelvis" },
		"cycle": func(d *Definition) {
			d.Joints[1].Parent = d.Joints[2].Child
		},
	}

	require.NoError(t, gaitDefinition(t).Validate())

	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			def := gaitDefinition(t)
			modify(&def)
			assert.Error(t, def.Validate())

			_, err := New(def)
			assert.Error(t, err)
		})
	}
}
