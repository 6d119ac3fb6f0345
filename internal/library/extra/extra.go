// Package extra is a second module library. Its modules share names with
// the standard library but use different conventions.
package extra

import (
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/library/standard"
	"github.com/san-kum/modsim/internal/module"
)

const Name = "extra"

func Library() *module.Library {
	return module.NewLibrary(Name, ThermalTimeLinear, HarmonicEnergy)
}

// ThermalTimeLinear accumulates thermal time assuming the model time unit
// is one day.
var ThermalTimeLinear = &module.Creator{
	Name:              "thermal_time_linear",
	Kind:              module.Differential,
	Inputs:            []string{"time", "temp", "sowing_time", "tbase"},
	Outputs:           []string{"TTc"},
	RequiresFixedStep: true,
	New: func(in, out dynamo.Table) (module.Module, error) {
		return standard.NewThermalTime(in, out, 1)
	},
}

// HarmonicEnergy declares the same outputs as the standard module.
var HarmonicEnergy = &module.Creator{
	Name:    "harmonic_energy",
	Kind:    module.SteadyState,
	Inputs:  []string{"position", "velocity", "mass", "spring_constant"},
	Outputs: []string{"kinetic_energy", "spring_energy", "total_energy"},
	New:     standard.NewHarmonicEnergy,
}
