package box2dsim

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/gaitrl/simulation"
	"github.com/samuelfneumann/gaitrl/utils/floatutils"
)

// Ground is the name that joints use to refer to the static ground
// body
const Ground string = "ground"

//go:embed assets/*.yaml
var assets embed.FS

// Definition is a model definition file, describing the bodies,
// joints, and muscles of a planar musculoskeletal model
type Definition struct {
	Name    string      `yaml:"name"`
	Gravity float64     `yaml:"gravity"`
	Ground  GroundDef   `yaml:"ground"`
	Bodies  []BodyDef   `yaml:"bodies"`
	Joints  []JointDef  `yaml:"joints"`
	Muscles []MuscleDef `yaml:"muscles"`
}

// GroundDef describes the flat ground that the model stands on
type GroundDef struct {
	Height    float64 `yaml:"height"`
	HalfWidth float64 `yaml:"half_width"`
	Friction  float64 `yaml:"friction"`
}

// BodyDef describes a single rigid box-shaped body. Origin is the
// position of the body frame in the baseline pose. Center and HalfSize
// describe the box in the body frame.
type BodyDef struct {
	Name     string    `yaml:"name"`
	Mass     float64   `yaml:"mass"`
	Origin   []float64 `yaml:"origin"`
	Center   []float64 `yaml:"center"`
	HalfSize []float64 `yaml:"half_size"`
	Friction float64   `yaml:"friction"`
}

// JointDef describes a joint between a parent and child body. The
// joint is located at the child body's origin. Range bounds the joint
// angle and Damping is the maximum passive friction torque.
type JointDef struct {
	Name    string               `yaml:"name"`
	Kind    simulation.JointKind `yaml:"kind"`
	Parent  string               `yaml:"parent"`
	Child   string               `yaml:"child"`
	Range   []float64            `yaml:"range"`
	Damping float64              `yaml:"damping"`
}

// MuscleDef describes a muscle-tendon actuator that produces torques
// about the joints it crosses
type MuscleDef struct {
	Name         string      `yaml:"name"`
	MaxForce     float64     `yaml:"max_force"`
	TimeConstant float64     `yaml:"time_constant"`
	MomentArms   []MomentArm `yaml:"moment_arms"`
}

// MomentArm is the signed moment arm of a muscle about a joint. A
// positive moment arm accelerates the joint coordinate positively.
type MomentArm struct {
	Joint string  `yaml:"joint"`
	Arm   float64 `yaml:"arm"`
}

// LoadDefinition loads a model definition. If file is a bare name that
// does not exist on disk, the definitions bundled with this package are
// searched for a definition of the same name, so that
// LoadDefinition("gait9dof18musc") always succeeds. Paths with a
// directory are only read from disk.
func LoadDefinition(file string) (Definition, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) && filepath.Base(file) == file {
		name := file
		if !strings.HasSuffix(name, ".yaml") {
			name += ".yaml"
		}
		if bundled, bundledErr := assets.ReadFile(path.Join("assets",
			name)); bundledErr == nil {
			data, err = bundled, nil
		}
	}
	if err != nil {
		return Definition{}, fmt.Errorf("loadDefinition: could not read "+
			"model %v: %w", file, err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("loadDefinition: could not parse "+
			"model %v: %w", file, err)
	}

	if err := def.Validate(); err != nil {
		return Definition{}, fmt.Errorf("loadDefinition: %v: %w", file, err)
	}
	return def, nil
}

// Validate ensures that a Definition describes a single connected
// tree of bodies rooted at a planar joint to the ground
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("model has no name")
	}
	if len(d.Bodies) == 0 {
		return fmt.Errorf("model has no bodies")
	}
	if d.Ground.HalfWidth <= 0 {
		return fmt.Errorf("ground half width must be positive")
	}

	bodies := make(map[string]bool, len(d.Bodies))
	for _, b := range d.Bodies {
		if b.Name == "" || b.Name == Ground {
			return fmt.Errorf("illegal body name %q", b.Name)
		}
		if bodies[b.Name] {
			return fmt.Errorf("duplicate body %v", b.Name)
		}
		bodies[b.Name] = true

		if !(b.Mass > 0) {
			return fmt.Errorf("body %v: mass must be positive", b.Name)
		}
		if len(b.Origin) != 2 || len(b.Center) != 2 || len(b.HalfSize) != 2 {
			return fmt.Errorf("body %v: origin, center, and half_size "+
				"must be 2-dimensional", b.Name)
		}
		if !(b.HalfSize[0] > 0) || !(b.HalfSize[1] > 0) {
			return fmt.Errorf("body %v: half_size must be positive", b.Name)
		}
		for _, v := range [][]float64{b.Origin, b.Center, {b.Friction}} {
			if !floatutils.IsFinite(v...) {
				return fmt.Errorf("body %v: non-finite geometry", b.Name)
			}
		}
	}

	roots := 0
	children := make(map[string]string, len(d.Joints))
	joints := make(map[string]simulation.JointKind, len(d.Joints))
	for _, j := range d.Joints {
		if _, ok := joints[j.Name]; ok || j.Name == "" {
			return fmt.Errorf("illegal or duplicate joint name %q", j.Name)
		}
		joints[j.Name] = j.Kind

		if j.Kind.Coordinates() < 0 {
			return fmt.Errorf("joint %v: unknown kind %q", j.Name, j.Kind)
		}
		if !bodies[j.Child] {
			return fmt.Errorf("joint %v: no such child body %q", j.Name,
				j.Child)
		}
		if prev, ok := children[j.Child]; ok {
			return fmt.Errorf("joint %v: body %v already attached by "+
				"joint %v", j.Name, j.Child, prev)
		}
		children[j.Child] = j.Name

		if j.Kind == simulation.Planar {
			if j.Parent != Ground {
				return fmt.Errorf("joint %v: planar joints must attach "+
					"to the ground", j.Name)
			}
			roots++
			continue
		}

		if !bodies[j.Parent] {
			return fmt.Errorf("joint %v: no such parent body %q", j.Name,
				j.Parent)
		}
		if j.Kind != simulation.Weld {
			if len(j.Range) != 2 || j.Range[0] > j.Range[1] {
				return fmt.Errorf("joint %v: range must be [lower, upper]",
					j.Name)
			}
		}
		if j.Damping < 0 {
			return fmt.Errorf("joint %v: damping must be non-negative",
				j.Name)
		}
	}
	if roots != 1 {
		return fmt.Errorf("model must have exactly one planar root joint, "+
			"have(%v)", roots)
	}
	parents := make(map[string]string, len(d.Joints))
	for _, j := range d.Joints {
		parents[j.Child] = j.Parent
	}
	for name := range bodies {
		if _, ok := children[name]; !ok {
			return fmt.Errorf("body %v is not attached by any joint", name)
		}

		// Walk towards the ground, which must be reached within as many
		// hops as there are bodies
		body := name
		for hops := 0; body != Ground; hops++ {
			if hops > len(bodies) {
				return fmt.Errorf("body %v is not connected to the ground",
					name)
			}
			body = parents[body]
		}
	}

	for _, m := range d.Muscles {
		if !(m.MaxForce > 0) || !(m.TimeConstant > 0) {
			return fmt.Errorf("muscle %v: max_force and time_constant "+
				"must be positive", m.Name)
		}
		if len(m.MomentArms) == 0 {
			return fmt.Errorf("muscle %v: crosses no joints", m.Name)
		}
		for _, arm := range m.MomentArms {
			kind, ok := joints[arm.Joint]
			if !ok || kind.Coordinates() != 1 {
				return fmt.Errorf("muscle %v: cannot cross joint %q",
					m.Name, arm.Joint)
			}
		}
	}
	return nil
}
