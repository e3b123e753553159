package domain

import "context"

// Service serves rate lookups and keeps the cache warm. Lookups go through
// redis first and fall back to the database; refreshing re-warms the cache
// from the authoritative tables.
type Service interface {
	ExchangeRate(ctx context.Context, currencyCode string) (float64, error)
	RevenueRate(ctx context.Context, level int) (float64, error)
	RefreshExchangeRates(ctx context.Context) (int, error)
	RefreshRevenueRates(ctx context.Context) (int, error)
}
