// Package cbk talks to the external bill aggregator and normalizes its
// inconsistent replies into canonical provider signals.
package cbk

import (
	"context"

	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
)

// Result is the adapter's normalized view of one aggregator call. It is
// transient: callers persist what they need onto the order.
type Result struct {
	Signal          orderdomain.ProviderSignal
	ProviderOrderID string
	Tokens          []orderdomain.Token
	Balance         string
	Raw             []byte
	// Fault carries a diagnostic when the call failed before a usable reply
	// (network error, non-2xx, empty body). The order keeps its status.
	Fault string
}

// Faulted reports whether the call never produced a usable provider reply.
func (r Result) Faulted() bool {
	return r.Fault != ""
}

// CatalogItem is one purchasable plan row from an aggregator catalog.
type CatalogItem struct {
	ServiceType  string
	ProviderCode string
	ProductCode  string
	Name         string
	Amount       float64
}

// Provider is the aggregator surface consumed by the pipeline. Every method
// is safe to call more than once: aggregator-side deduplication is keyed by
// the per-request nonce, and callers must not assume at-most-once delivery.
type Provider interface {
	// PlaceOrder submits one utility order for fulfillment.
	PlaceOrder(ctx context.Context, order orderdomain.Order) Result
	// QueryOrder asks for the current state of a previously placed order.
	QueryOrder(ctx context.Context, providerOrderID string) Result
	// Balance returns the operator's float balance at the aggregator.
	Balance(ctx context.Context) (string, error)
	// FetchCatalog downloads the purchasable plans for one service type.
	FetchCatalog(ctx context.Context, serviceType string) ([]CatalogItem, error)
}
