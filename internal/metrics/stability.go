package metrics

import (
	"math"

	"github.com/san-kum/modsim/internal/dynamo"
)

// Stability is the fraction of rows in which every watched column stays
// within the threshold.
type Stability struct {
	threshold  float64
	columns    []string
	violations int
	samples    int
}

func NewStability(threshold float64, columns ...string) *Stability {
	return &Stability{threshold: threshold, columns: columns}
}

func (s *Stability) Name() string      { return "stability" }
func (s *Stability) Columns() []string { return s.columns }

func (s *Stability) Observe(row dynamo.Quantities, t float64) {
	s.samples++
	for _, col := range s.columns {
		v := row[col]
		if math.IsNaN(v) || math.Abs(v) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Crossings counts sign changes of a column. Exact zeros are skipped.
type Crossings struct {
	column string
	last   float64
	count  int
}

func NewCrossings(column string) *Crossings {
	return &Crossings{column: column}
}

func (c *Crossings) Name() string      { return "crossings(" + c.column + ")" }
func (c *Crossings) Columns() []string { return []string{c.column} }

func (c *Crossings) Observe(row dynamo.Quantities, t float64) {
	v := row[c.column]
	if v == 0 {
		return
	}
	if c.last != 0 && (v > 0) != (c.last > 0) {
		c.count++
	}
	c.last = v
}

func (c *Crossings) Value() float64 { return float64(c.count) }

func (c *Crossings) Reset() {
	c.last = 0
	c.count = 0
}
