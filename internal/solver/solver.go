// Package solver drives a dynamical system across its driver time points
// and assembles the result.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/integrators"
)

// NotCalledReport is the report of a solver that has not integrated yet.
const NotCalledReport = "solver has not been called yet"

// minStep is the smallest adaptive step, as a fraction of an interval.
const minStep = 1e-9

// System is what a Solver integrates.
type System interface {
	integrators.System
	NTimes() int
	RequiresFixedStep() bool
	DifferentialNames() []string
	State() dynamo.Vector
	SetState(x dynamo.Vector) error
	Observe(t float64) (dynamo.Quantities, error)
}

// Stats summarizes one Integrate call.
type Stats struct {
	Method      string
	Intervals   int
	Steps       int
	Rejected    int
	Evaluations int
	Elapsed     time.Duration
}

// Recorder receives the statistics of every Integrate call.
type Recorder interface {
	RecordIntegration(stats Stats, err error)
}

type Solver struct {
	cfg      Config
	log      zerolog.Logger
	tracer   trace.Tracer
	recorder Recorder

	called bool
	stats  Stats
	failed error
}

type Option func(*Solver)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Solver) { s.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(s *Solver) { s.recorder = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Solver) { s.tracer = t }
}

// New returns a solver for cfg. Zero fields take their DefaultConfig values.
func New(cfg Config, opts ...Option) (*Solver, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Solver{
		cfg:    cfg,
		log:    zerolog.Nop(),
		tracer: otel.Tracer("github.com/san-kum/modsim/internal/solver"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Solver) Config() Config { return s.cfg }

// Stats returns the statistics of the most recent Integrate call.
func (s *Solver) Stats() Stats { return s.stats }

// Report describes the most recent Integrate call.
func (s *Solver) Report() string {
	if !s.called {
		return NotCalledReport
	}
	st := s.stats
	summary := fmt.Sprintf("%d steps (%d rejected, %d derivative evaluations) across %d intervals",
		st.Steps, st.Rejected, st.Evaluations, st.Intervals)
	if s.failed != nil {
		return fmt.Sprintf("%s: integration failed after %s: %v", st.Method, summary, s.failed)
	}
	return fmt.Sprintf("%s: integration required %s", st.Method, summary)
}

// Method resolves the configured method for sys.
func (s *Solver) Method(sys System) (string, error) {
	m := s.cfg.Method
	if m == MethodAuto {
		if sys.RequiresFixedStep() {
			return MethodEuler, nil
		}
		return MethodRK45, nil
	}
	if IsAdaptive(m) && sys.RequiresFixedStep() {
		return "", fmt.Errorf("%w: %s", dynamo.ErrSolverIncompatible, m)
	}
	return m, nil
}

// Integrate advances sys from its current state across every driver
// interval. The returned result has one row per driver time point. On
// error no result is returned and the system keeps the state of the last
// completed interval.
func (s *Solver) Integrate(ctx context.Context, sys System) (dynamo.Result, error) {
	start := time.Now()
	s.called = true
	s.stats = Stats{Method: s.cfg.Method}
	s.failed = nil

	result, err := s.integrate(ctx, sys)

	s.stats.Elapsed = time.Since(start)
	s.failed = err
	if s.recorder != nil {
		s.recorder.RecordIntegration(s.stats, err)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("method", s.stats.Method).Int("steps", s.stats.Steps).Msg("integration failed")
		return nil, err
	}
	s.log.Debug().
		Str("method", s.stats.Method).
		Int("steps", s.stats.Steps).
		Int("rejected", s.stats.Rejected).
		Int("evaluations", s.stats.Evaluations).
		Dur("elapsed", s.stats.Elapsed).
		Msg("integration complete")
	return result, nil
}

func (s *Solver) integrate(ctx context.Context, sys System) (_ dynamo.Result, err error) {
	ctx, span := s.tracer.Start(ctx, "solver.Integrate", trace.WithAttributes(
		attribute.String("solver.method", s.cfg.Method),
		attribute.Int("system.ntimes", sys.NTimes()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	name, err := s.Method(sys)
	if err != nil {
		return nil, err
	}
	s.stats.Method = name
	span.SetAttributes(attribute.String("solver.resolved_method", name))

	stepper := methods[name].new()
	counted := &countingSystem{sys: sys}

	n := sys.NTimes()
	builder := newResultBuilder(n)

	row, err := sys.Observe(0)
	if err != nil {
		return nil, &dynamo.SimulationError{Step: 0, Time: 0, State: sys.State(), Wrapped: err}
	}
	builder.add(row)

	x := sys.State()
	dt := s.cfg.StepSize
	for i := 0; i < n-1; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		t := float64(i)
		var next dynamo.Vector
		if adaptive, ok := stepper.(integrators.AdaptiveStepper); ok {
			next, err = s.adaptiveInterval(adaptive, counted, x, t, &dt)
		} else {
			next, err = stepper.Step(counted, x, t, 1)
			if err == nil {
				s.stats.Steps++
			}
		}
		s.stats.Evaluations = counted.evaluations
		if err != nil {
			return nil, &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: err}
		}
		if s.cfg.ValidateState && !next.IsValid() {
			return nil, &dynamo.SimulationError{Step: i, Time: t + 1, State: next, Wrapped: dynamo.ErrInvalidState}
		}

		x = next
		if err := sys.SetState(x); err != nil {
			return nil, err
		}
		s.stats.Intervals++

		row, err := sys.Observe(t + 1)
		if err != nil {
			return nil, &dynamo.SimulationError{Step: i + 1, Time: t + 1, State: x, Wrapped: err}
		}
		builder.add(row)
	}

	span.SetAttributes(
		attribute.Int("solver.steps", s.stats.Steps),
		attribute.Int("solver.rejected", s.stats.Rejected),
	)
	return builder.build(), nil
}

// adaptiveInterval integrates from t to t+1. dt carries the step size
// between intervals.
func (s *Solver) adaptiveInterval(stepper integrators.AdaptiveStepper, sys integrators.System, x dynamo.Vector, t float64, dt *float64) (dynamo.Vector, error) {
	tol := integrators.Tolerance{RelTol: s.cfg.RelTol, AbsTol: s.cfg.AbsTol}
	end := t + 1
	attempts := 0

	for end-t > minStep {
		if attempts >= s.cfg.MaxSteps {
			return nil, fmt.Errorf("%w: %d attempts in interval starting at t=%g", dynamo.ErrNotConverged, attempts, end-1)
		}
		h := math.Min(*dt, end-t)
		res, err := stepper.StepAdaptive(sys, x, t, h, tol)
		if err != nil {
			return nil, err
		}
		attempts++

		next := res.Next
		if res.Accepted {
			x = res.X
			t += h
			s.stats.Steps++
			// a step clipped to the interval end keeps the larger proposal
			if h < *dt {
				next = math.Max(*dt, res.Next)
			}
		} else {
			s.stats.Rejected++
		}
		*dt = math.Max(minStep, math.Min(next, 1))
	}
	return x, nil
}

type countingSystem struct {
	sys         integrators.System
	evaluations int
}

func (c *countingSystem) Derive(x dynamo.Vector, t float64) (dynamo.Vector, error) {
	c.evaluations++
	return c.sys.Derive(x, t)
}

// IsSolverError reports whether err was raised by the solver itself rather
// than by a module or the composition.
func IsSolverError(err error) bool {
	return errors.Is(err, dynamo.ErrNotConverged) ||
		errors.Is(err, dynamo.ErrInvalidState) ||
		errors.Is(err, dynamo.ErrSolverIncompatible)
}
