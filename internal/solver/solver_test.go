package solver

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/integrators"
	"github.com/san-kum/modsim/internal/library/extra"
	"github.com/san-kum/modsim/internal/library/standard"
	"github.com/san-kum/modsim/internal/module"
	"github.com/san-kum/modsim/internal/system"
)

var std = standard.Library()

func newSolver(t *testing.T, cfg Config, opts ...Option) *Solver {
	t.Helper()
	s, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("solver construction failed: %v", err)
	}
	return s
}

func thermalSystem(t *testing.T, differential ...*module.Creator) *system.System {
	t.Helper()
	if len(differential) == 0 {
		differential = []*module.Creator{std.MustRetrieve("thermal_time_linear")}
	}
	sys, err := system.New(
		dynamo.State{"TTc": 0},
		dynamo.Parameters{"sowing_time": 0, "tbase": 10, "timestep": 1},
		dynamo.Drivers{
			"time": {0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
			"temp": {5, 8, 10, 15, 20, 20, 25, 30, 32, 40},
		},
		nil, differential,
	)
	if err != nil {
		t.Fatalf("system construction failed: %v", err)
	}
	return sys
}

func growthSystem(t *testing.T, biomass, rate float64, n int) *system.System {
	t.Helper()
	sys, err := system.New(
		dynamo.State{"biomass": biomass},
		dynamo.Parameters{"growth_rate": rate, "timestep": 0.5},
		dynamo.Drivers{"hour": make([]float64, n)},
		nil, module.Set{std.MustRetrieve("exponential_growth")},
	)
	if err != nil {
		t.Fatalf("system construction failed: %v", err)
	}
	return sys
}

func TestReport_BeforeFirstCall(t *testing.T) {
	s := newSolver(t, Config{})
	if s.Report() != "solver has not been called yet" {
		t.Errorf("Report() = %q", s.Report())
	}
}

func TestNew_Config(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		sentinel error
	}{
		{"unknown method", Config{Method: "bogus"}, dynamo.ErrUnknownSolver},
		{"step too large", Config{StepSize: 2}, nil},
		{"negative tolerance", Config{RelTol: -1}, nil},
		{"negative max steps", Config{MaxSteps: -1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}

	s := newSolver(t, Config{})
	if diff := cmp.Diff(DefaultConfig(), s.Config()); diff != "" {
		t.Errorf("zero config should take defaults (-want +got):\n%s", diff)
	}
}

func TestNames(t *testing.T) {
	want := []string{"auto", "euler", "homemade_euler", "rk4", "rk45"}
	if diff := cmp.Diff(want, Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestIntegrate_EulerThermalTime(t *testing.T) {
	sys := thermalSystem(t)
	s := newSolver(t, Config{Method: MethodEuler})

	result, err := s.Integrate(context.Background(), sys)
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}

	if result.Len() != 10 {
		t.Fatalf("expected 10 rows, got %d", result.Len())
	}
	if diff := cmp.Diff([]string{"TTc", "temp", "time"}, result.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if got, want := result.Last()["TTc"], 3+5.0/12.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("final TTc = %v, want %v", got, want)
	}
	if diff := cmp.Diff([]float64{5, 8, 10, 15, 20, 20, 25, 30, 32, 40}, result["temp"]); diff != "" {
		t.Errorf("driver column mismatch (-want +got):\n%s", diff)
	}

	want := "euler: integration required 9 steps (0 rejected, 9 derivative evaluations) across 9 intervals"
	if s.Report() != want {
		t.Errorf("Report() = %q, want %q", s.Report(), want)
	}
}

func TestIntegrate_MixedLibraries(t *testing.T) {
	sys := thermalSystem(t, std.MustRetrieve("thermal_time_linear"), extra.Library().MustRetrieve("thermal_time_linear"))
	s := newSolver(t, Config{})

	result, err := s.Integrate(context.Background(), sys)
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}
	if got, want := result.Last()["TTc"], 25*(3+5.0/12.0); math.Abs(got-want) > 1e-9 {
		t.Errorf("final TTc = %v, want %v", got, want)
	}
	if s.Stats().Method != MethodEuler {
		t.Errorf("auto should pick euler for fixed-step systems, got %s", s.Stats().Method)
	}
}

func TestIntegrate_AdaptiveRefusesFixedStepSystems(t *testing.T) {
	s := newSolver(t, Config{Method: MethodRK45})
	_, err := s.Integrate(context.Background(), thermalSystem(t))
	if !errors.Is(err, dynamo.ErrSolverIncompatible) {
		t.Fatalf("expected ErrSolverIncompatible, got %v", err)
	}
	if !IsSolverError(err) {
		t.Error("incompatibility is a solver error")
	}
}

func TestIntegrate_HarmonicRK4(t *testing.T) {
	const (
		mass, k, x0, dt = 2.0, 8.0, 1.0, 0.01
	)
	omega := math.Sqrt(k / mass)
	period := 2 * math.Pi / omega
	n := int(math.Floor(period/dt*5)) + 1

	sys, err := system.New(
		dynamo.State{"position": x0, "velocity": 0},
		dynamo.Parameters{"mass": mass, "spring_constant": k, "timestep": dt},
		dynamo.Drivers{"doy": make([]float64, n)},
		module.Set{std.MustRetrieve("harmonic_energy")},
		module.Set{std.MustRetrieve("harmonic_oscillator")},
	)
	if err != nil {
		t.Fatalf("system construction failed: %v", err)
	}

	result, err := newSolver(t, Config{Method: MethodRK4}).Integrate(context.Background(), sys)
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}

	e0 := 0.5 * k * x0 * x0
	for i := 0; i < result.Len(); i++ {
		want := x0 * math.Cos(omega*float64(i)*dt)
		if got := result["position"][i]; math.Abs(got-want) > 3e-3*x0 {
			t.Fatalf("row %d: position %v, want %v", i, got, want)
		}
		if e := result["total_energy"][i]; math.Abs(e-e0) > 9e-4*e0 {
			t.Fatalf("row %d: energy %v, want %v", i, e, e0)
		}
	}
}

func TestIntegrate_RK45Growth(t *testing.T) {
	sys := growthSystem(t, 2, 0.3, 11)
	s := newSolver(t, Config{Method: MethodRK45, RelTol: 1e-8, AbsTol: 1e-10, StepSize: 0.25})

	result, err := s.Integrate(context.Background(), sys)
	if err != nil {
		t.Fatalf("integrate failed: %v", err)
	}
	// 10 intervals of timestep 0.5
	want := 2 * math.Exp(0.3*5)
	if got := result.Last()["biomass"]; math.Abs(got-want)/want > 1e-6 {
		t.Errorf("final biomass = %v, want %v", got, want)
	}
	st := s.Stats()
	if st.Intervals != 10 || st.Steps < 10 || st.Evaluations < 7*st.Steps {
		t.Errorf("unexpected stats %+v", st)
	}
	if !strings.HasPrefix(s.Report(), "rk45: integration required") {
		t.Errorf("Report() = %q", s.Report())
	}
}

func TestIntegrate_MaxSteps(t *testing.T) {
	sys := growthSystem(t, 1, 0.1, 3)
	s := newSolver(t, Config{Method: MethodRK45, StepSize: 0.01, RelTol: 1e-2, MaxSteps: 2})

	result, err := s.Integrate(context.Background(), sys)
	if !errors.Is(err, dynamo.ErrNotConverged) {
		t.Fatalf("expected ErrNotConverged, got %v", err)
	}
	if result != nil {
		t.Error("no result may be returned on failure")
	}
	if !strings.Contains(s.Report(), "integration failed") {
		t.Errorf("Report() = %q", s.Report())
	}
}

func TestIntegrate_ContinuesFromCurrentState(t *testing.T) {
	sys := thermalSystem(t)
	s := newSolver(t, Config{Method: MethodEuler})

	first, err := s.Integrate(context.Background(), sys)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := s.Integrate(context.Background(), sys)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if second.First()["TTc"] != first.Last()["TTc"] {
		t.Errorf("second run should start at %v, got %v", first.Last()["TTc"], second.First()["TTc"])
	}
	if diff := cmp.Diff(first["temp"], second["temp"]); diff != "" {
		t.Errorf("drivers must match between runs (-first +second):\n%s", diff)
	}

	sys.Reset()
	third, err := s.Integrate(context.Background(), sys)
	if err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	if diff := cmp.Diff(first, third); diff != "" {
		t.Errorf("reset run should repeat the first (-first +third):\n%s", diff)
	}
}

func TestIntegrate_InvalidState(t *testing.T) {
	sys := growthSystem(t, 1e200, 1e200, 3)
	_, err := newSolver(t, Config{Method: MethodEuler, ValidateState: true}).Integrate(context.Background(), sys)
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	var se *dynamo.SimulationError
	if !errors.As(err, &se) || se.Step != 0 {
		t.Errorf("expected SimulationError at step 0, got %v", err)
	}
}

func TestIntegrate_EvaluationError(t *testing.T) {
	sys, err := system.New(
		dynamo.State{"position": 1, "velocity": 0},
		dynamo.Parameters{"mass": -1, "spring_constant": 1, "timestep": 1},
		dynamo.Drivers{"doy": {1, 2}},
		nil, module.Set{std.MustRetrieve("harmonic_oscillator")},
	)
	if err != nil {
		t.Fatalf("system construction failed: %v", err)
	}
	_, err = newSolver(t, Config{Method: MethodRK4}).Integrate(context.Background(), sys)
	if !errors.Is(err, dynamo.ErrEvaluation) {
		t.Fatalf("expected ErrEvaluation, got %v", err)
	}
	if IsSolverError(err) {
		t.Error("module failures are not solver errors")
	}
}

func TestIntegrate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSolver(t, Config{Method: MethodEuler}).Integrate(ctx, thermalSystem(t))
	if !errors.Is(err, dynamo.ErrContextCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

type recorded struct {
	stats []Stats
	errs  []error
}

func (r *recorded) RecordIntegration(stats Stats, err error) {
	r.stats = append(r.stats, stats)
	r.errs = append(r.errs, err)
}

func TestIntegrate_Recorder(t *testing.T) {
	rec := &recorded{}
	s := newSolver(t, Config{Method: MethodEuler}, WithRecorder(rec))

	if _, err := s.Integrate(context.Background(), thermalSystem(t)); err != nil {
		t.Fatalf("integrate failed: %v", err)
	}
	_, _ = newSolver(t, Config{Method: MethodRK45}, WithRecorder(rec)).Integrate(context.Background(), thermalSystem(t))

	if len(rec.stats) != 2 {
		t.Fatalf("expected 2 records, got %d", len(rec.stats))
	}
	if rec.errs[0] != nil || rec.stats[0].Steps != 9 {
		t.Errorf("unexpected first record %+v %v", rec.stats[0], rec.errs[0])
	}
	if !errors.Is(rec.errs[1], dynamo.ErrSolverIncompatible) {
		t.Errorf("unexpected second error %v", rec.errs[1])
	}
}

// doublingStepper accepts every attempt and proposes twice the size it was
// given, recording each attempted size.
type doublingStepper struct {
	sizes []float64
}

func (d *doublingStepper) Step(sys integrators.System, x dynamo.Vector, t, dt float64) (dynamo.Vector, error) {
	return x.Clone(), nil
}

func (d *doublingStepper) StepAdaptive(sys integrators.System, x dynamo.Vector, t, dt float64, tol integrators.Tolerance) (integrators.StepResult, error) {
	d.sizes = append(d.sizes, dt)
	return integrators.StepResult{X: x.Clone(), Accepted: true, Next: 2 * dt}, nil
}

func TestAdaptiveInterval_ClippedStepKeepsProposal(t *testing.T) {
	s := newSolver(t, Config{Method: MethodRK45})
	stepper := &doublingStepper{}
	sys := integrators.SystemFunc(func(x dynamo.Vector, t float64) (dynamo.Vector, error) {
		return dynamo.Vector{0}, nil
	})

	dt := 0.75
	if _, err := s.adaptiveInterval(stepper, sys, dynamo.Vector{1}, 0, &dt); err != nil {
		t.Fatalf("first interval failed: %v", err)
	}
	// 0.75, then 0.25 clipped to the interval end
	if diff := cmp.Diff([]float64{0.75, 0.25}, stepper.sizes); diff != "" {
		t.Errorf("attempted sizes mismatch (-want +got):\n%s", diff)
	}
	if dt != 1 {
		t.Errorf("dt after clipped step = %v, want 1", dt)
	}

	stepper.sizes = nil
	if _, err := s.adaptiveInterval(stepper, sys, dynamo.Vector{1}, 1, &dt); err != nil {
		t.Fatalf("second interval failed: %v", err)
	}
	if diff := cmp.Diff([]float64{1}, stepper.sizes); diff != "" {
		t.Errorf("second interval should take one full step (-want +got):\n%s", diff)
	}
}
