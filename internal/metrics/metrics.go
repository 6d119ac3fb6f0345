// Package metrics computes scalar diagnostics over a simulation result.
//
// A metric observes the result one row at a time and reports a single value:
//
//	ms, _ := metrics.ParseAll([]string{"drift:total_energy", "crossings:position"})
//	values, err := metrics.Evaluate(result, ms...)
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/modsim/internal/dynamo"
)

var (
	ErrUnknownMetric = errors.New("unknown metric")
	ErrMissingColumn = errors.New("metric column not in result")
)

type Metric interface {
	Name() string
	// Columns lists the result columns the metric reads.
	Columns() []string
	Observe(row dynamo.Quantities, t float64)
	Value() float64
	Reset()
}

// Parse builds a metric from "kind:argument", where kind is one of mean,
// drift, crossings, frequency or stability. Stability takes a threshold
// followed by the columns to check, e.g. "stability:100:position,velocity".
func Parse(spec string) (Metric, error) {
	kind, arg, ok := strings.Cut(spec, ":")
	if !ok || arg == "" {
		return nil, fmt.Errorf("%w: %q is not kind:column", ErrUnknownMetric, spec)
	}
	switch kind {
	case "mean":
		return NewMean(arg), nil
	case "drift":
		return NewDrift(arg), nil
	case "crossings":
		return NewCrossings(arg), nil
	case "frequency":
		return NewFrequency(arg), nil
	case "stability":
		threshold, cols, _ := strings.Cut(arg, ":")
		v, err := strconv.ParseFloat(threshold, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("%w: bad stability threshold in %q", ErrUnknownMetric, spec)
		}
		if cols == "" {
			return nil, fmt.Errorf("%w: stability needs columns in %q", ErrUnknownMetric, spec)
		}
		return NewStability(v, strings.Split(cols, ",")...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, kind)
	}
}

func ParseAll(specs []string) ([]Metric, error) {
	ms := make([]Metric, 0, len(specs))
	var errs []error
	for _, spec := range specs {
		m, err := Parse(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ms = append(ms, m)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ms, nil
}

// Evaluate resets every metric, feeds it each row of result and returns the
// values keyed by metric name.
func Evaluate(result dynamo.Result, ms ...Metric) (map[string]float64, error) {
	for _, m := range ms {
		for _, col := range m.Columns() {
			if _, ok := result[col]; !ok {
				return nil, fmt.Errorf("%w: %s needs %q", ErrMissingColumn, m.Name(), col)
			}
		}
		m.Reset()
	}

	n := result.Len()
	for i := 0; i < n; i++ {
		row := result.Row(i)
		for _, m := range ms {
			m.Observe(row, float64(i))
		}
	}

	values := make(map[string]float64, len(ms))
	for _, m := range ms {
		values[m.Name()] = m.Value()
	}
	return values, nil
}
