package solver

import (
	"fmt"
	"sort"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/integrators"
)

const (
	MethodAuto          = "auto"
	MethodEuler         = "euler"
	MethodHomemadeEuler = "homemade_euler"
	MethodRK4           = "rk4"
	MethodRK45          = "rk45"
)

type method struct {
	adaptive bool
	new      func() integrators.Stepper
}

var methods = map[string]method{
	MethodEuler:         {new: func() integrators.Stepper { return integrators.NewEuler() }},
	MethodHomemadeEuler: {new: func() integrators.Stepper { return integrators.NewEuler() }},
	MethodRK4:           {new: func() integrators.Stepper { return integrators.NewRK4() }},
	MethodRK45:          {adaptive: true, new: func() integrators.Stepper { return integrators.NewRK45() }},
}

// Names returns every accepted method name, sorted.
func Names() []string {
	names := []string{MethodAuto}
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsAdaptive reports whether name selects an adaptive method.
func IsAdaptive(name string) bool {
	return methods[name].adaptive
}

type Config struct {
	Method string `yaml:"method" json:"method" validate:"omitempty,oneof=auto euler homemade_euler rk4 rk45"`
	// StepSize is the initial adaptive step as a fraction of one driver
	// interval.
	StepSize float64 `yaml:"step_size" json:"step_size" validate:"gte=0,lte=1"`
	RelTol   float64 `yaml:"rel_tol" json:"rel_tol" validate:"gte=0"`
	AbsTol   float64 `yaml:"abs_tol" json:"abs_tol" validate:"gte=0"`
	// MaxSteps bounds the attempts, accepted or rejected, per driver
	// interval.
	MaxSteps      int  `yaml:"max_steps" json:"max_steps" validate:"gte=0"`
	ValidateState bool `yaml:"validate_state" json:"validate_state"`
}

func DefaultConfig() Config {
	return Config{
		Method:   MethodAuto,
		StepSize: 1,
		RelTol:   1e-4,
		AbsTol:   1e-4,
		MaxSteps: 200,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Method == "" {
		c.Method = def.Method
	}
	if c.StepSize == 0 {
		c.StepSize = def.StepSize
	}
	if c.RelTol == 0 && c.AbsTol == 0 {
		c.RelTol, c.AbsTol = def.RelTol, def.AbsTol
	}
	if c.MaxSteps == 0 {
		c.MaxSteps = def.MaxSteps
	}
	return c
}

func (c Config) validate() error {
	if _, ok := methods[c.Method]; !ok && c.Method != MethodAuto {
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownSolver, c.Method)
	}
	if c.StepSize <= 0 || c.StepSize > 1 {
		return fmt.Errorf("step size must be in (0, 1], got %g", c.StepSize)
	}
	if c.RelTol < 0 || c.AbsTol < 0 {
		return fmt.Errorf("tolerances must not be negative")
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("max steps must be positive, got %d", c.MaxSteps)
	}
	return nil
}
