package agent

import (
	"fmt"

	"github.com/samuelfneumann/gaitrl/environment"
)

// Type represents a specific type of an agent Config. Config's with
// this type can create Agents of the corresponding type.
type Type string

const (
	RandomAgent   Type = "Random"
	ConstantAgent Type = "Constant"
)

// Config represents a configuration for creating an agent
type Config interface {
	// CreateAgent creates the agent that the config describes
	CreateAgent(env environment.Environment, seed uint64) (Agent, error)

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error

	Type() Type
}

// RandomConfig configures a Random agent
type RandomConfig struct{}

// CreateAgent implements the Config interface
func (r RandomConfig) CreateAgent(env environment.Environment,
	seed uint64) (Agent, error) {
	return NewRandom(env.ActionSpec(), seed)
}

// Validate implements the Config interface
func (r RandomConfig) Validate() error { return nil }

// Type implements the Config interface
func (r RandomConfig) Type() Type { return RandomAgent }

// ConstantConfig configures a Constant agent that selects the same
// activation for every element of its actions
type ConstantConfig struct {
	Activation float64
}

// CreateAgent implements the Config interface
func (c ConstantConfig) CreateAgent(env environment.Environment,
	seed uint64) (Agent, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("createAgent: %v", err)
	}
	return NewConstant(env.ActionSpec(), c.Activation)
}

// Validate implements the Config interface
func (c ConstantConfig) Validate() error {
	if c.Activation < 0 || c.Activation > 1 {
		return fmt.Errorf("activation must be in [0, 1]: have(%v)",
			c.Activation)
	}
	return nil
}

// Type implements the Config interface
func (c ConstantConfig) Type() Type { return ConstantAgent }

// NewConfig returns the default Config of an agent Type
func NewConfig(t Type) (Config, error) {
	switch t {
	case RandomAgent:
		return RandomConfig{}, nil
	case ConstantAgent:
		return ConstantConfig{}, nil
	}
	return nil, fmt.Errorf("newConfig: no such agent type %q", t)
}
