// Package config loads simulation scenarios and process settings.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/modsim/internal/solver"
)

var ErrInvalidScenario = errors.New("invalid scenario")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Scenario describes one simulation in a form that can be stored as YAML.
// Module names are either "library:name" or a bare name.
type Scenario struct {
	Name                string               `yaml:"name,omitempty" json:"name,omitempty"`
	Description         string               `yaml:"description,omitempty" json:"description,omitempty"`
	Mode                string               `yaml:"mode,omitempty" json:"mode,omitempty" validate:"omitempty,oneof=reset rebuild single continue"`
	InitialState        map[string]float64   `yaml:"initial_state" json:"initial_state"`
	Parameters          map[string]float64   `yaml:"parameters" json:"parameters"`
	Drivers             map[string][]float64 `yaml:"drivers,omitempty" json:"drivers,omitempty" validate:"dive,min=1"`
	DriverRanges        map[string]Range     `yaml:"driver_ranges,omitempty" json:"driver_ranges,omitempty" validate:"dive"`
	DriversCSV          string               `yaml:"drivers_csv,omitempty" json:"drivers_csv,omitempty"`
	DirectModules       []string             `yaml:"direct_modules,omitempty" json:"direct_modules,omitempty" validate:"dive,required"`
	DifferentialModules []string             `yaml:"differential_modules,omitempty" json:"differential_modules,omitempty" validate:"dive,required"`
	Solver              solver.Config        `yaml:"solver" json:"solver"`
	// Metrics are evaluated on the result, e.g. "drift:total_energy".
	Metrics []string `yaml:"metrics,omitempty" json:"metrics,omitempty" validate:"dive,required"`
}

// Range generates Count evenly spaced driver values.
type Range struct {
	Start float64 `yaml:"start" json:"start"`
	Step  float64 `yaml:"step" json:"step"`
	Count int     `yaml:"count" json:"count" validate:"gt=0"`
}

func (r Range) Values() []float64 {
	v := make([]float64, r.Count)
	for i := range v {
		v[i] = r.Start + float64(i)*r.Step
	}
	return v
}

// DefaultScenario is the scenario used when no file or preset is given.
func DefaultScenario() *Scenario {
	s := GetPreset("harmonic", "released")
	s.Name = "default"
	return s
}

// Validate checks the scenario's structure. Composition problems such as
// unknown modules or missing quantities are found when the scenario is
// built.
func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if len(s.Drivers) == 0 && len(s.DriverRanges) == 0 && s.DriversCSV == "" {
		return fmt.Errorf("%w: no drivers, driver_ranges or drivers_csv given", ErrInvalidScenario)
	}
	return nil
}

func (s *Scenario) Clone() *Scenario {
	c := *s
	c.InitialState = cloneMap(s.InitialState)
	c.Parameters = cloneMap(s.Parameters)
	c.DriverRanges = cloneMap(s.DriverRanges)
	if s.Drivers != nil {
		c.Drivers = make(map[string][]float64, len(s.Drivers))
		for k, v := range s.Drivers {
			c.Drivers[k] = append([]float64(nil), v...)
		}
	}
	c.DirectModules = append([]string(nil), s.DirectModules...)
	c.DifferentialModules = append([]string(nil), s.DifferentialModules...)
	c.Metrics = append([]string(nil), s.Metrics...)
	return &c
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	c := make(map[string]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Load reads and validates a YAML scenario. Solver fields the file leaves
// out keep their defaults.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := &Scenario{Mode: "reset", Solver: solver.DefaultConfig()}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func Save(path string, s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
