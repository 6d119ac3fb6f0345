package metrics

import (
	"math"

	"github.com/san-kum/modsim/internal/dynamo"
)

// Mean is the average of one column.
type Mean struct {
	column  string
	samples int
	total   float64
}

func NewMean(column string) *Mean {
	return &Mean{column: column}
}

func (m *Mean) Name() string      { return "mean(" + m.column + ")" }
func (m *Mean) Columns() []string { return []string{m.column} }

func (m *Mean) Observe(row dynamo.Quantities, t float64) {
	m.total += row[m.column]
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.total / float64(m.samples)
}

func (m *Mean) Reset() {
	m.total = 0
	m.samples = 0
}

// Drift is the largest relative departure of a column from its first value.
// Applied to a conserved quantity such as total energy it measures
// integration error.
type Drift struct {
	column   string
	initial  float64
	maxDrift float64
	samples  int
}

func NewDrift(column string) *Drift {
	return &Drift{column: column}
}

func (d *Drift) Name() string      { return "drift(" + d.column + ")" }
func (d *Drift) Columns() []string { return []string{d.column} }

func (d *Drift) Observe(row dynamo.Quantities, t float64) {
	v := row[d.column]
	if d.samples == 0 {
		d.initial = v
	}
	d.samples++

	if d.initial != 0 {
		drift := math.Abs(v-d.initial) / math.Abs(d.initial)
		d.maxDrift = math.Max(d.maxDrift, drift)
	}
}

func (d *Drift) Value() float64 {
	return d.maxDrift
}

func (d *Drift) Reset() {
	d.initial = 0
	d.maxDrift = 0
	d.samples = 0
}
