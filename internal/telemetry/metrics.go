package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/solver"
)

const namespace = "modsim"

// Failure classes used for the failures_total label.
const (
	ClassComposition = "composition"
	ClassEvaluation  = "evaluation"
	ClassSolver      = "solver"
	ClassCanceled    = "canceled"
	ClassOther       = "other"
)

// Metrics collects integration statistics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	integrations *prometheus.CounterVec
	steps        *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	evaluations  *prometheus.CounterVec
	failures     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		integrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "integrations_total",
				Help:      "Total number of solver integrations",
			},
			[]string{"method", "status"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "solver_steps_total",
				Help:      "Total number of accepted integration steps",
			},
			[]string{"method"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejected_steps_total",
				Help:      "Total number of steps rejected by error control",
			},
			[]string{"method"},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "derivative_evaluations_total",
				Help:      "Total number of derivative evaluations",
			},
			[]string{"method"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Failed integrations by error class",
			},
			[]string{"class"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "integration_duration_seconds",
				Help:      "Wall time spent in a single integration",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"method"},
		),
	}

	m.registry.MustRegister(
		m.integrations,
		m.steps,
		m.rejected,
		m.evaluations,
		m.failures,
		m.duration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordIntegration implements solver.Recorder.
func (m *Metrics) RecordIntegration(stats solver.Stats, err error) {
	method := stats.Method
	if method == "" {
		method = "unknown"
	}

	status := "ok"
	if err != nil {
		status = "error"
		m.failures.WithLabelValues(Classify(err)).Inc()
	}

	m.integrations.WithLabelValues(method, status).Inc()
	m.steps.WithLabelValues(method).Add(float64(stats.Steps))
	m.rejected.WithLabelValues(method).Add(float64(stats.Rejected))
	m.evaluations.WithLabelValues(method).Add(float64(stats.Evaluations))
	m.duration.WithLabelValues(method).Observe(stats.Elapsed.Seconds())
}

// Classify maps err to one of the failure classes.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, dynamo.ErrContextCanceled):
		return ClassCanceled
	case errors.Is(err, dynamo.ErrComposition):
		return ClassComposition
	case errors.Is(err, dynamo.ErrEvaluation):
		return ClassEvaluation
	case solver.IsSolverError(err):
		return ClassSolver
	default:
		return ClassOther
	}
}

// WriteTextfile writes the current metrics in the node_exporter textfile
// format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
