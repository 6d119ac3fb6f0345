// Package sim runs simulations built from a Spec.
//
// A plain Simulator continues from wherever its previous run stopped. The
// wrappers give repeated runs well-defined meaning:
//
//   - Resetting restores the initial state before every run
//   - Rebuilding constructs a fresh system and solver for every run
//   - SingleUse refuses every run after the first
package sim

import (
	"github.com/rs/zerolog"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/module"
	"github.com/san-kum/modsim/internal/solver"
	"github.com/san-kum/modsim/internal/system"
)

// Spec holds the construction arguments of one simulation.
type Spec struct {
	InitialState dynamo.State
	Parameters   dynamo.Parameters
	Drivers      dynamo.Drivers
	Direct       module.Set
	Differential module.Set
	Solver       solver.Config
}

// Clone returns a deep copy. Creators are shared; they are immutable.
func (s Spec) Clone() Spec {
	return Spec{
		InitialState: s.InitialState.Clone(),
		Parameters:   s.Parameters.Clone(),
		Drivers:      s.Drivers.Clone(),
		Direct:       append(module.Set(nil), s.Direct...),
		Differential: append(module.Set(nil), s.Differential...),
		Solver:       s.Solver,
	}
}

// WithParameters returns a copy of s with overrides applied on top of its
// parameters.
func (s Spec) WithParameters(overrides dynamo.Parameters) Spec {
	c := s.Clone()
	if c.Parameters == nil {
		c.Parameters = make(dynamo.Parameters, len(overrides))
	}
	for k, v := range overrides {
		c.Parameters[k] = v
	}
	return c
}

type options struct {
	log      zerolog.Logger
	recorder solver.Recorder
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRecorder reports every integration to r.
func WithRecorder(r solver.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func newOptions(opts []Option) options {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (s Spec) build(o options) (*system.System, *solver.Solver, error) {
	sys, err := system.New(s.InitialState, s.Parameters, s.Drivers, s.Direct, s.Differential,
		system.WithLogger(o.log))
	if err != nil {
		return nil, nil, err
	}

	solverOpts := []solver.Option{solver.WithLogger(o.log)}
	if o.recorder != nil {
		solverOpts = append(solverOpts, solver.WithRecorder(o.recorder))
	}
	slv, err := solver.New(s.Solver, solverOpts...)
	if err != nil {
		return nil, nil, err
	}
	return sys, slv, nil
}
