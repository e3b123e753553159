package fulfillment

import (
	"context"
	"errors"
	"sync"
	"time"

	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
)

const (
	// batchSize bounds concurrent aggregator calls; the upstream rate
	// limits aggressively.
	batchSize  = 3
	batchDelay = 500 * time.Millisecond
)

// forEachBatch fans fn out over orders in fixed-size batches with a pause
// between batches. Item errors are accumulated, never propagated early: one
// bad order must not cost the rest of the batch their turn.
func forEachBatch(ctx context.Context, orders []orderdomain.Order, fn func(context.Context, orderdomain.Order) error) error {
	var (
		mu   sync.Mutex
		errs error
	)

	for start := 0; start < len(orders); start += batchSize {
		if err := ctx.Err(); err != nil {
			return errors.Join(errs, err)
		}

		end := start + batchSize
		if end > len(orders) {
			end = len(orders)
		}

		var wg sync.WaitGroup
		for _, order := range orders[start:end] {
			wg.Add(1)
			go func(order orderdomain.Order) {
				defer wg.Done()
				if err := fn(ctx, order); err != nil {
					mu.Lock()
					errs = errors.Join(errs, err)
					mu.Unlock()
				}
			}(order)
		}
		wg.Wait()

		if end < len(orders) {
			select {
			case <-ctx.Done():
				return errors.Join(errs, ctx.Err())
			case <-time.After(batchDelay):
			}
		}
	}

	return errs
}
