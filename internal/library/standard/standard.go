// Package standard is the default module library.
package standard

import "github.com/san-kum/modsim/internal/module"

// Name is the library name used in qualified module names.
const Name = "standard"

// Library returns a new library holding every standard module.
func Library() *module.Library {
	return module.NewLibrary(Name,
		HarmonicOscillator,
		HarmonicEnergy,
		ThermalTimeLinear,
		ExponentialGrowth,
	)
}
