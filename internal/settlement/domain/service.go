package domain

import "context"

// Service is the settlement engine. Every sweep processes a bounded batch,
// accumulates per-item errors without stopping, and is safe to re-run: each
// write is conditional on the record still being in its pre-settlement state.
type Service interface {
	// SettleOrders completes processed orders: package orders become
	// subscriptions (with the dependent cascade), utility orders credit
	// revenue share, and the order is marked settled.
	SettleOrders(ctx context.Context, limit int) (int, error)
	// QueryPayments resolves pending payments with their gateway.
	QueryPayments(ctx context.Context, limit int) (int, error)
	// SettlePayments credits confirmed payments onto the payer's wallet.
	SettlePayments(ctx context.Context, limit int) (int, error)
	// SettlePayouts debits pending payouts from the revenue-share balance,
	// rejecting the ones the balance cannot cover.
	SettlePayouts(ctx context.Context, limit int) (int, error)
	// SettleTrades converts pending trades at the current exchange rate,
	// rejecting the ones the source balance cannot cover.
	SettleTrades(ctx context.Context, limit int) (int, error)
}
