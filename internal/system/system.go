package system

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/module"
)

// System is a dynamical system built from a fixed composition of modules.
//
// The system owns its state. Derive evaluates trial states without
// touching it; only SetState and Reset change it. A System is not safe for
// concurrent use.
type System struct {
	log zerolog.Logger
	ns  *Namespace

	initial dynamo.State
	params  dynamo.Parameters
	drivers dynamo.Drivers

	quantities dynamo.Table
	rates      dynamo.Table

	stateRefs  []*float64
	rateRefs   []*float64
	driverRefs []*float64
	timestep   *float64

	direct       []*module.Instance
	differential []*module.Instance

	x                 dynamo.Vector
	requiresFixedStep bool
}

type Option func(*System)

func WithLogger(l zerolog.Logger) Option {
	return func(s *System) { s.log = l }
}

// New validates the composition and binds every module. Inputs are copied;
// the caller may modify or discard them afterwards. Steady-state modules
// run once at the first time point before New returns.
func New(initial dynamo.State, params dynamo.Parameters, drivers dynamo.Drivers, direct, differential module.Set, opts ...Option) (*System, error) {
	ns, err := Validate(initial, params, drivers, direct, differential)
	if err != nil {
		return nil, err
	}

	s := &System{
		log:        zerolog.Nop(),
		ns:         ns,
		initial:    initial.Clone(),
		params:     params.Clone(),
		drivers:    drivers.Clone(),
		quantities: make(dynamo.Table),
		rates:      make(dynamo.Table),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, name := range ns.State {
		s.stateRefs = append(s.stateRefs, s.quantities.Define(name, s.initial[name]))
		s.rateRefs = append(s.rateRefs, s.rates.Define(name, 0))
	}
	for name, v := range s.params {
		s.quantities.Define(name, v)
	}
	for _, name := range ns.Drivers {
		s.driverRefs = append(s.driverRefs, s.quantities.Define(name, s.drivers[name][0]))
	}
	for _, name := range ns.Outputs {
		s.quantities.Define(name, 0)
	}
	s.timestep = s.quantities[TimestepQuantity]

	for _, c := range direct {
		inst, err := module.Bind(c, s.quantities, s.quantities)
		if err != nil {
			return nil, err
		}
		s.direct = append(s.direct, inst)
		s.requiresFixedStep = s.requiresFixedStep || c.RequiresFixedStep
	}
	for _, c := range differential {
		inst, err := module.Bind(c, s.quantities, s.rates)
		if err != nil {
			return nil, err
		}
		s.differential = append(s.differential, inst)
		s.requiresFixedStep = s.requiresFixedStep || c.RequiresFixedStep
	}

	s.x = make(dynamo.Vector, len(ns.State))
	s.Reset()
	if err := s.runDirect(0); err != nil {
		return nil, err
	}

	s.log.Debug().
		Int("state", len(ns.State)).
		Int("parameters", len(ns.Parameters)).
		Int("drivers", len(ns.Drivers)).
		Int("direct_modules", len(s.direct)).
		Int("differential_modules", len(s.differential)).
		Int("ntimes", ns.NTimes).
		Bool("requires_fixed_step", s.requiresFixedStep).
		Msg("system constructed")

	return s, nil
}

// NTimes returns the number of driver time points.
func (s *System) NTimes() int { return s.ns.NTimes }

// RequiresFixedStep reports whether any module needs a fixed-step method.
func (s *System) RequiresFixedStep() bool { return s.requiresFixedStep }

// DifferentialNames returns the state quantity names in vector order.
func (s *System) DifferentialNames() []string {
	return append([]string(nil), s.ns.State...)
}

// Reset restores the initial state.
func (s *System) Reset() {
	for i, name := range s.ns.State {
		s.x[i] = s.initial[name]
	}
	s.load(s.x, 0)
}

// State returns a copy of the current state vector.
func (s *System) State() dynamo.Vector { return s.x.Clone() }

// SetState replaces the current state vector.
func (s *System) SetState(x dynamo.Vector) error {
	if len(x) != len(s.x) {
		return fmt.Errorf("state has %d values, system has %d state quantities", len(x), len(s.x))
	}
	copy(s.x, x)
	return nil
}

// CurrentState returns the current state keyed by name.
func (s *System) CurrentState() dynamo.State {
	st := make(dynamo.State, len(s.x))
	for i, name := range s.ns.State {
		st[name] = s.x[i]
	}
	return st
}

// Evaluate returns the derivative of the current state at time index t.
func (s *System) Evaluate(t float64) (dynamo.Vector, error) {
	return s.Derive(s.x, t)
}

// Derive returns the derivative of x with respect to the time index at t.
// Drivers are set for t, steady-state modules run in order, and the summed
// differential rates are scaled by the timestep.
func (s *System) Derive(x dynamo.Vector, t float64) (dynamo.Vector, error) {
	s.load(x, t)
	if err := s.runDirect(t); err != nil {
		return nil, err
	}

	s.rates.Zero()
	for _, inst := range s.differential {
		if err := inst.Run(); err != nil {
			return nil, s.evaluationError(inst, t, err)
		}
	}

	dt := 1.0
	if s.timestep != nil {
		dt = *s.timestep
	}
	dx := make(dynamo.Vector, len(s.rateRefs))
	for i, p := range s.rateRefs {
		dx[i] = *p * dt
	}
	return dx, nil
}

// Observe evaluates the steady-state modules for the current state at time
// index t and returns every recorded quantity. Parameters are not included.
func (s *System) Observe(t float64) (dynamo.Quantities, error) {
	s.load(s.x, t)
	if err := s.runDirect(t); err != nil {
		return nil, err
	}

	row := make(dynamo.Quantities, len(s.ns.State)+len(s.ns.Drivers)+len(s.ns.Outputs))
	for i, name := range s.ns.State {
		row[name] = *s.stateRefs[i]
	}
	for i, name := range s.ns.Drivers {
		row[name] = *s.driverRefs[i]
	}
	for _, name := range s.ns.Outputs {
		row[name] = *s.quantities[name]
	}
	return row, nil
}

func (s *System) load(x dynamo.Vector, t float64) {
	for i, p := range s.stateRefs {
		*p = x[i]
	}
	for i, name := range s.ns.Drivers {
		*s.driverRefs[i] = dynamo.Interpolate(s.drivers[name], t)
	}
}

func (s *System) runDirect(t float64) error {
	for _, inst := range s.direct {
		if err := inst.Run(); err != nil {
			return s.evaluationError(inst, t, err)
		}
	}
	return nil
}

func (s *System) evaluationError(inst *module.Instance, t float64, err error) error {
	s.log.Error().Err(err).
		Str("module", inst.Creator().QualifiedName()).
		Float64("t", t).
		Msg("module evaluation failed")
	return &dynamo.EvaluationError{Module: inst.Creator().QualifiedName(), Time: t, Err: err}
}
