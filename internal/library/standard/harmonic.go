package standard

import (
	"fmt"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/module"
)

// HarmonicOscillator computes the rates of an undamped mass on a spring:
// dx/dt = v and dv/dt = -k*x/m.
var HarmonicOscillator = &module.Creator{
	Name:    "harmonic_oscillator",
	Kind:    module.Differential,
	Inputs:  []string{"position", "velocity", "mass", "spring_constant"},
	Outputs: []string{"position", "velocity"},
	New:     newHarmonicOscillator,
}

type harmonicOscillator struct {
	position, velocity, mass, springConstant *float64
	dPosition, dVelocity                     *float64
}

func newHarmonicOscillator(in, out dynamo.Table) (module.Module, error) {
	ins, err := in.Refs("position", "velocity", "mass", "spring_constant")
	if err != nil {
		return nil, err
	}
	outs, err := out.Refs("position", "velocity")
	if err != nil {
		return nil, err
	}
	return &harmonicOscillator{
		position:       ins[0],
		velocity:       ins[1],
		mass:           ins[2],
		springConstant: ins[3],
		dPosition:      outs[0],
		dVelocity:      outs[1],
	}, nil
}

func (h *harmonicOscillator) Run() error {
	if *h.mass <= 0 {
		return fmt.Errorf("mass must be positive, got %g", *h.mass)
	}
	*h.dPosition = *h.velocity
	*h.dVelocity = -*h.springConstant * *h.position / *h.mass
	return nil
}

// HarmonicEnergy reports the kinetic, spring and total energy of a mass on
// a spring.
var HarmonicEnergy = &module.Creator{
	Name:    "harmonic_energy",
	Kind:    module.SteadyState,
	Inputs:  []string{"position", "velocity", "mass", "spring_constant"},
	Outputs: []string{"kinetic_energy", "spring_energy", "total_energy"},
	New:     NewHarmonicEnergy,
}

type harmonicEnergy struct {
	position, velocity, mass, springConstant *float64
	kinetic, spring, total                   *float64
}

// NewHarmonicEnergy binds an energy module. It is exported so other
// libraries can offer the same computation under their own name.
func NewHarmonicEnergy(in, out dynamo.Table) (module.Module, error) {
	ins, err := in.Refs("position", "velocity", "mass", "spring_constant")
	if err != nil {
		return nil, err
	}
	outs, err := out.Refs("kinetic_energy", "spring_energy", "total_energy")
	if err != nil {
		return nil, err
	}
	return &harmonicEnergy{
		position:       ins[0],
		velocity:       ins[1],
		mass:           ins[2],
		springConstant: ins[3],
		kinetic:        outs[0],
		spring:         outs[1],
		total:          outs[2],
	}, nil
}

func (e *harmonicEnergy) Run() error {
	x, v := *e.position, *e.velocity
	ke := 0.5 * *e.mass * v * v
	pe := 0.5 * *e.springConstant * x * x
	*e.kinetic = ke
	*e.spring = pe
	*e.total = ke + pe
	return nil
}
