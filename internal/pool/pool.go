// Package pool provides a bounded, order-preserving concurrent runner.
package pool

import (
	"context"
	"sync"
)

// Run invokes worker over items with at most limit concurrent invocations.
//
// Result slot i always holds the result for items[i], regardless of completion
// order. On the first worker error the context passed to every worker is
// canceled, no further items are dispatched, and Run returns that first error
// once the in-flight workers have returned. Workers are expected to honor the
// context; Run does not kill them.
//
// A limit below 1 is clamped to 1. Retrying is the worker's own concern.
func Run[T, R any](ctx context.Context, items []T, limit int, worker func(ctx context.Context, index int, item T) (R, error)) ([]R, error) {
	if limit < 1 {
		limit = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]R, len(items))
	sem := make(chan struct{}, limit)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)

	for i, item := range items {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			wg.Add(1)
			go func(i int, item T) {
				defer wg.Done()
				defer func() { <-sem }()

				r, err := worker(ctx, i, item)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				results[i] = r
			}(i, item)
		}
		if ctx.Err() != nil {
			break
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
