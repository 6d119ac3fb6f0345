package dynamo

import (
	"fmt"
	"math"
	"sort"
)

// Vector is the ordered differential state handled by integrators.
type Vector []float64

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Quantities is a named set of values.
type Quantities map[string]float64

// State names the values of the differential quantities.
type State = Quantities

// Parameters names the constants of one simulation.
type Parameters = Quantities

func (q Quantities) Clone() Quantities {
	c := make(Quantities, len(q))
	for k, v := range q {
		c[k] = v
	}
	return c
}

// Names returns the quantity names in sorted order.
func (q Quantities) Names() []string {
	return sortedKeys(q)
}

// Drivers maps each exogenous quantity to one value per time point.
type Drivers map[string][]float64

func (d Drivers) Clone() Drivers {
	c := make(Drivers, len(d))
	for k, v := range d {
		s := make([]float64, len(v))
		copy(s, v)
		c[k] = s
	}
	return c
}

func (d Drivers) Names() []string {
	return sortedKeys(d)
}

// Len returns the number of time points shared by every driver series.
func (d Drivers) Len() (int, error) {
	if len(d) == 0 {
		return 0, fmt.Errorf("%w: no drivers were supplied", ErrDriverLength)
	}
	n := -1
	for _, name := range d.Names() {
		l := len(d[name])
		if n == -1 {
			n = l
			continue
		}
		if l != n {
			return 0, fmt.Errorf("%w: driver %q has %d values, expected %d", ErrDriverLength, name, l, n)
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: driver series are empty", ErrDriverLength)
	}
	return n, nil
}

// Interpolate returns the value of series at fractional index t, linearly
// interpolated between neighbouring time points and clamped to the ends.
func Interpolate(series []float64, t float64) float64 {
	n := len(series)
	if n == 0 {
		return 0
	}
	if t <= 0 {
		return series[0]
	}
	if t >= float64(n-1) {
		return series[n-1]
	}
	i := int(t)
	frac := t - float64(i)
	if frac == 0 {
		return series[i]
	}
	return series[i]*(1-frac) + series[i+1]*frac
}

// Result is a column-oriented time series: one column per quantity and one
// row per driver time point.
type Result map[string][]float64

// Len returns the number of rows.
func (r Result) Len() int {
	for _, col := range r {
		return len(col)
	}
	return 0
}

// Columns returns the column names in sorted order.
func (r Result) Columns() []string {
	return sortedKeys(r)
}

// Row returns every quantity's value at row i.
func (r Result) Row(i int) Quantities {
	row := make(Quantities, len(r))
	for name, col := range r {
		if i >= 0 && i < len(col) {
			row[name] = col[i]
		}
	}
	return row
}

func (r Result) First() Quantities { return r.Row(0) }

func (r Result) Last() Quantities { return r.Row(r.Len() - 1) }

func (r Result) Clone() Result {
	c := make(Result, len(r))
	for k, v := range r {
		s := make([]float64, len(v))
		copy(s, v)
		c[k] = s
	}
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
