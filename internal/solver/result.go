package solver

import "github.com/san-kum/modsim/internal/dynamo"

// resultBuilder accumulates one row per time point into columns.
type resultBuilder struct {
	result dynamo.Result
	rows   int
	next   int
}

func newResultBuilder(rows int) *resultBuilder {
	return &resultBuilder{result: make(dynamo.Result), rows: rows}
}

func (b *resultBuilder) add(row dynamo.Quantities) {
	for name, v := range row {
		col, ok := b.result[name]
		if !ok {
			col = make([]float64, b.rows)
			b.result[name] = col
		}
		col[b.next] = v
	}
	b.next++
}

func (b *resultBuilder) build() dynamo.Result {
	return b.result
}
