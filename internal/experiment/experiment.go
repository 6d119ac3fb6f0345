// Package experiment turns scenarios into runnable simulations.
package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/metrics"
	"github.com/san-kum/modsim/internal/sim"
)

// Build resolves a scenario's modules and drivers into a sim.Spec. A
// relative drivers CSV path is resolved against baseDir.
func Build(reg *Registry, sc *config.Scenario, baseDir string) (sim.Spec, error) {
	if err := sc.Validate(); err != nil {
		return sim.Spec{}, err
	}
	direct, err := reg.ResolveAll(sc.DirectModules)
	if err != nil {
		return sim.Spec{}, err
	}
	differential, err := reg.ResolveAll(sc.DifferentialModules)
	if err != nil {
		return sim.Spec{}, err
	}
	drivers, err := sc.BuildDrivers(baseDir)
	if err != nil {
		return sim.Spec{}, err
	}
	return sim.Spec{
		InitialState: dynamo.State(sc.InitialState).Clone(),
		Parameters:   dynamo.Parameters(sc.Parameters).Clone(),
		Drivers:      drivers,
		Direct:       direct,
		Differential: differential,
		Solver:       sc.Solver,
	}, nil
}

// Outcome is one completed run.
type Outcome struct {
	ID       string
	Scenario *config.Scenario
	Result   dynamo.Result
	Report   string
	Metrics  map[string]float64
	Started  time.Time
	Elapsed  time.Duration
}

type Experiment struct {
	scenario *config.Scenario
	spec     sim.Spec
	runner   sim.Runner
	metrics  []metrics.Metric
}

// New builds the runner selected by the scenario's mode.
func New(reg *Registry, sc *config.Scenario, baseDir string, opts ...sim.Option) (*Experiment, error) {
	spec, err := Build(reg, sc, baseDir)
	if err != nil {
		return nil, err
	}
	ms, err := metrics.ParseAll(sc.Metrics)
	if err != nil {
		return nil, err
	}
	runner, err := sim.NewRunner(sim.Mode(sc.Mode), spec, opts...)
	if err != nil {
		return nil, err
	}
	return &Experiment{scenario: sc.Clone(), spec: spec, runner: runner, metrics: ms}, nil
}

func (e *Experiment) Spec() sim.Spec { return e.spec.Clone() }

func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()
	result, err := e.runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	values, err := metrics.Evaluate(result, e.metrics...)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		ID:       uuid.NewString(),
		Scenario: e.scenario.Clone(),
		Result:   result,
		Report:   e.runner.Report(),
		Metrics:  values,
		Started:  start,
		Elapsed:  time.Since(start),
	}, nil
}

// Sweep runs the scenario once per value of one parameter, concurrently.
func Sweep(ctx context.Context, reg *Registry, sc *config.Scenario, baseDir, param string, values []float64, opts ...sim.Option) ([]*Outcome, error) {
	spec, err := Build(reg, sc, baseDir)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("sweep over %q has no values", param)
	}
	ms, err := metrics.ParseAll(sc.Metrics)
	if err != nil {
		return nil, err
	}

	variants := make([]dynamo.Parameters, len(values))
	for i, v := range values {
		variants[i] = dynamo.Parameters{param: v}
	}

	start := time.Now()
	results, err := sim.NewEnsemble(spec, variants, opts...).Run(ctx)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	outcomes := make([]*Outcome, len(results))
	for i, result := range results {
		variant := sc.Clone()
		if variant.Parameters == nil {
			variant.Parameters = make(map[string]float64)
		}
		variant.Parameters[param] = values[i]
		variant.Name = fmt.Sprintf("%s[%s=%g]", sc.Name, param, values[i])
		variant.Mode = string(sim.ModeRebuild)
		mv, err := metrics.Evaluate(result, ms...)
		if err != nil {
			return nil, err
		}
		outcomes[i] = &Outcome{
			ID:       uuid.NewString(),
			Scenario: variant,
			Result:   result,
			Report:   fmt.Sprintf("sweep variant %d of %d", i+1, len(results)),
			Metrics:  mv,
			Started:  start,
			Elapsed:  elapsed,
		}
	}
	return outcomes, nil
}
