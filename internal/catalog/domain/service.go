package domain

import "context"

// Service keeps the product catalog aligned with the aggregator's.
type Service interface {
	// Import downloads one service type's catalog and bulk-upserts it.
	// Returns the number of rows written.
	Import(ctx context.Context, serviceType string) (int, error)
	// RecalculatePrices reapplies the current margins onto every active
	// product's cost price.
	RecalculatePrices(ctx context.Context) (int, error)
}
