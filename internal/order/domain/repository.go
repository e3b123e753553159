package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id snowflake.ID) (*Order, error)
	// FetchForFulfillment returns utility orders awaiting a provider call.
	FetchForFulfillment(ctx context.Context, limit int) ([]Order, error)
	// FetchForQuery returns orders whose provider outcome is still pending.
	FetchForQuery(ctx context.Context, limit int) ([]Order, error)
	// FetchForSettlement returns processed orders not yet settled.
	FetchForSettlement(ctx context.Context, limit int) ([]Order, error)
	// AdvanceStatus conditionally moves an order between statuses. It reports
	// whether the row changed; terminal statuses are never overwritten.
	AdvanceStatus(ctx context.Context, id snowflake.ID, from, to OrderStatus, providerOrderID string, tokens datatypes.JSON, raw datatypes.JSON) (bool, error)
	// MarkSettled flags an order as settled exactly once.
	MarkSettled(ctx context.Context, id snowflake.ID) (bool, error)
	// RecordProviderReply stores a raw provider payload for audit without
	// touching the order's status.
	RecordProviderReply(ctx context.Context, id snowflake.ID, raw datatypes.JSON) error
}
