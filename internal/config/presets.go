package config

import (
	"sort"

	"github.com/san-kum/modsim/internal/solver"
)

var thermalDrivers = map[string][]float64{
	"time": {0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	"temp": {5, 8, 10, 15, 20, 20, 25, 30, 32, 40},
}

var thermalParameters = map[string]float64{"sowing_time": 0, "tbase": 10, "timestep": 1}

var harmonicMetrics = []string{"drift:total_energy", "crossings:position", "frequency:position"}

var Presets = map[string]map[string]*Scenario{
	"harmonic": {
		"released": {
			Description:         "mass released from rest, five periods",
			InitialState:        map[string]float64{"position": 1, "velocity": 0},
			Parameters:          map[string]float64{"mass": 2, "spring_constant": 8, "timestep": 0.01},
			DriverRanges:        map[string]Range{"elapsed": {Start: 0, Step: 0.01, Count: 1571}},
			DirectModules:       []string{"standard:harmonic_energy"},
			DifferentialModules: []string{"standard:harmonic_oscillator"},
			Solver:              solver.Config{Method: solver.MethodRK4},
			Metrics:             harmonicMetrics,
		},
		"launched": {
			Description:         "mass launched off centre, five periods",
			InitialState:        map[string]float64{"position": -3, "velocity": 4},
			Parameters:          map[string]float64{"mass": 5, "spring_constant": 1.25, "timestep": 0.01},
			DriverRanges:        map[string]Range{"elapsed": {Start: 0, Step: 0.01, Count: 6284}},
			DirectModules:       []string{"standard:harmonic_energy"},
			DifferentialModules: []string{"standard:harmonic_oscillator"},
			Solver:              solver.Config{Method: solver.MethodRK4},
			Metrics:             harmonicMetrics,
		},
	},
	"thermal_time": {
		"hourly": {
			Description:         "hourly thermal time accumulation",
			InitialState:        map[string]float64{"TTc": 0},
			Parameters:          thermalParameters,
			Drivers:             thermalDrivers,
			DifferentialModules: []string{"standard:thermal_time_linear"},
			Solver:              solver.Config{Method: solver.MethodEuler},
		},
		"mixed_libraries": {
			Description:         "hourly and daily thermal time modules summed",
			InitialState:        map[string]float64{"TTc": 0},
			Parameters:          thermalParameters,
			Drivers:             thermalDrivers,
			DifferentialModules: []string{"standard:thermal_time_linear", "extra:thermal_time_linear"},
			Solver:              solver.Config{Method: solver.MethodEuler},
		},
	},
	"growth": {
		"exponential": {
			Description:         "exponential biomass growth, adaptive solver",
			InitialState:        map[string]float64{"biomass": 1},
			Parameters:          map[string]float64{"growth_rate": 0.05, "timestep": 1},
			DriverRanges:        map[string]Range{"doy": {Start: 1, Step: 1, Count: 60}},
			DifferentialModules: []string{"exponential_growth"},
			Solver:              solver.Config{Method: solver.MethodRK45, RelTol: 1e-6, AbsTol: 1e-8},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(group, preset string) *Scenario {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	s, ok := groupPresets[preset]
	if !ok {
		return nil
	}
	c := s.Clone()
	c.Name = group + "/" + preset
	c.Mode = "reset"
	return c
}

func ListPresets(group string) []string {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(groupPresets))
	for name := range groupPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func PresetGroups() []string {
	groups := make([]string, 0, len(Presets))
	for g := range Presets {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
