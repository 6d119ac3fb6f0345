package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/modsim/internal/dynamo"
)

// Ensemble runs one base Spec under several parameter variants. Every
// variant gets its own system and solver, so variants run concurrently.
type Ensemble struct {
	base     Spec
	variants []dynamo.Parameters
	opts     []Option
}

func NewEnsemble(base Spec, variants []dynamo.Parameters, opts ...Option) *Ensemble {
	return &Ensemble{base: base.Clone(), variants: variants, opts: opts}
}

// Run returns one result per variant, in variant order. It fails if any
// variant fails.
func (e *Ensemble) Run(ctx context.Context) ([]dynamo.Result, error) {
	results := make([]dynamo.Result, len(e.variants))
	errs := make([]error, len(e.variants))

	var wg sync.WaitGroup
	for i, params := range e.variants {
		wg.Add(1)
		go func(idx int, spec Spec) {
			defer wg.Done()

			r, err := NewRebuilding(spec, e.opts...)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = r.Run(ctx)
		}(i, e.base.WithParameters(params))
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", i, err)
		}
	}

	return results, nil
}
