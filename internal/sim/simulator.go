package sim

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/solver"
	"github.com/san-kum/modsim/internal/system"
)

// Runner runs a simulation and describes its most recent run.
type Runner interface {
	Run(ctx context.Context) (dynamo.Result, error)
	Report() string
}

// Simulator integrates one system. Each Run starts from the state the
// previous Run ended in.
type Simulator struct {
	sys    *system.System
	solver *solver.Solver
}

func New(spec Spec, opts ...Option) (*Simulator, error) {
	sys, slv, err := spec.build(newOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Simulator{sys: sys, solver: slv}, nil
}

func (s *Simulator) System() *system.System { return s.sys }

func (s *Simulator) Run(ctx context.Context) (dynamo.Result, error) {
	return s.solver.Integrate(ctx, s.sys)
}

func (s *Simulator) Report() string { return s.solver.Report() }

// Stats returns the solver statistics of the most recent run.
func (s *Simulator) Stats() solver.Stats { return s.solver.Stats() }

// Resetting restores the initial state before every run, so repeated runs
// produce identical results.
type Resetting struct {
	sim *Simulator
}

func NewResetting(spec Spec, opts ...Option) (*Resetting, error) {
	s, err := New(spec, opts...)
	if err != nil {
		return nil, err
	}
	return &Resetting{sim: s}, nil
}

func (r *Resetting) Run(ctx context.Context) (dynamo.Result, error) {
	r.sim.sys.Reset()
	return r.sim.Run(ctx)
}

func (r *Resetting) Report() string { return r.sim.Report() }

// Rebuilding keeps only the construction arguments and builds a new system
// and solver for every run.
type Rebuilding struct {
	spec   Spec
	opts   options
	report string
}

// NewRebuilding validates spec by building it once.
func NewRebuilding(spec Spec, opts ...Option) (*Rebuilding, error) {
	o := newOptions(opts)
	spec = spec.Clone()
	if _, _, err := spec.build(o); err != nil {
		return nil, err
	}
	return &Rebuilding{spec: spec, opts: o}, nil
}

func (r *Rebuilding) Run(ctx context.Context) (dynamo.Result, error) {
	sys, slv, err := r.spec.build(r.opts)
	if err != nil {
		return nil, err
	}
	result, err := slv.Integrate(ctx, sys)
	r.report = slv.Report()
	return result, err
}

func (r *Rebuilding) Report() string {
	if r.report == "" {
		return solver.NotCalledReport
	}
	return r.report
}

// SingleUse permits exactly one run.
type SingleUse struct {
	sim *Simulator
	ran atomic.Bool
}

func NewSingleUse(spec Spec, opts ...Option) (*SingleUse, error) {
	s, err := New(spec, opts...)
	if err != nil {
		return nil, err
	}
	return &SingleUse{sim: s}, nil
}

func (s *SingleUse) Run(ctx context.Context) (dynamo.Result, error) {
	if s.ran.Swap(true) {
		return nil, dynamo.ErrAlreadyRun
	}
	return s.sim.Run(ctx)
}

func (s *SingleUse) Report() string { return s.sim.Report() }

// Mode selects a Runner.
type Mode string

const (
	ModeContinue Mode = "continue"
	ModeReset    Mode = "reset"
	ModeRebuild  Mode = "rebuild"
	ModeSingle   Mode = "single"
)

func Modes() []Mode {
	return []Mode{ModeReset, ModeRebuild, ModeSingle, ModeContinue}
}

// NewRunner builds the runner for mode. The empty mode means ModeReset.
func NewRunner(mode Mode, spec Spec, opts ...Option) (Runner, error) {
	switch mode {
	case "", ModeReset:
		return NewResetting(spec, opts...)
	case ModeRebuild:
		return NewRebuilding(spec, opts...)
	case ModeSingle:
		return NewSingleUse(spec, opts...)
	case ModeContinue:
		return New(spec, opts...)
	default:
		return nil, fmt.Errorf("unknown run mode %q", mode)
	}
}
