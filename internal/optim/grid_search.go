// Package optim searches parameter grids for the scenario that minimises a
// result metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/experiment"
	"github.com/san-kum/modsim/internal/metrics"
	"github.com/san-kum/modsim/internal/sim"
)

var ErrNoCandidate = errors.New("no grid point produced a finite metric")

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("grid needs one value list per parameter, got %d names and %d lists", len(params), len(ranges))
	}
	seen := make(map[string]bool, len(params))
	for i, name := range params {
		if seen[name] {
			return nil, fmt.Errorf("parameter %q appears twice in the grid", name)
		}
		seen[name] = true
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("parameter %q has no values", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Point is one evaluated grid point.
type Point struct {
	Parameters dynamo.Parameters
	Value      float64
}

// Points enumerates the grid with the last parameter varying fastest.
func (g *GridSearch) Points() []dynamo.Parameters {
	var points []dynamo.Parameters
	g.collect(0, dynamo.Parameters{}, &points)
	return points
}

func (g *GridSearch) collect(depth int, current dynamo.Parameters, points *[]dynamo.Parameters) {
	if depth == len(g.paramNames) {
		*points = append(*points, current.Clone())
		return
	}
	name := g.paramNames[depth]
	for _, v := range g.ranges[depth] {
		current[name] = v
		g.collect(depth+1, current, points)
	}
	delete(current, name)
}

// Search runs the scenario at every grid point concurrently and returns the
// point with the smallest metric value, followed by every evaluated point
// in grid order. Points whose metric is NaN are never chosen.
func (g *GridSearch) Search(ctx context.Context, reg *experiment.Registry, sc *config.Scenario, baseDir, metricSpec string, opts ...sim.Option) (Point, []Point, error) {
	m, err := metrics.Parse(metricSpec)
	if err != nil {
		return Point{}, nil, err
	}
	spec, err := experiment.Build(reg, sc, baseDir)
	if err != nil {
		return Point{}, nil, err
	}

	grid := g.Points()
	results, err := sim.NewEnsemble(spec, grid, opts...).Run(ctx)
	if err != nil {
		return Point{}, nil, err
	}

	best := Point{Value: math.Inf(1)}
	points := make([]Point, len(grid))
	for i, result := range results {
		values, err := metrics.Evaluate(result, m)
		if err != nil {
			return Point{}, nil, err
		}
		points[i] = Point{Parameters: grid[i], Value: values[m.Name()]}
		if points[i].Value < best.Value {
			best = points[i]
		}
	}
	if best.Parameters == nil {
		return Point{}, points, ErrNoCandidate
	}
	return best, points, nil
}
