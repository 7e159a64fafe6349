package sim

import (
	"context"
	"sync"

	"github.com/san-kum/popdyn/internal/ecology"
)

// Batch runs independent sessions headless, one goroutine per parameter set.
type Batch struct {
	opts  Options
	steps int
}

func NewBatch(opts Options, steps int) *Batch {
	return &Batch{opts: opts, steps: steps}
}

func (b *Batch) Run(ctx context.Context, params []ecology.Params) ([]Snapshot, error) {
	results := make([]Snapshot, len(params))
	errs := make([]error, len(params))

	var wg sync.WaitGroup
	for i := range params {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = RunHeadless(ctx, params[idx], b.opts, b.steps)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// RunHeadless resets a fresh session from params and ticks it steps times
// without a timer.
func RunHeadless(ctx context.Context, params ecology.Params, opts Options, steps int) (Snapshot, error) {
	s, err := New(params, opts)
	if err != nil {
		return Snapshot{}, err
	}
	s.Start()

	const chunk = 500
	for done := 0; done < steps; done += chunk {
		select {
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		default:
		}
		n := chunk
		if steps-done < n {
			n = steps - done
		}
		if err := s.Advance(n); err != nil {
			return Snapshot{}, err
		}
	}
	s.Pause()
	return s.Snapshot(), nil
}
