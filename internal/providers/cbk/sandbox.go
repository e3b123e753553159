package cbk

import (
	"context"
	"fmt"

	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"go.uber.org/zap"
)

const sandboxMeterToken = "123456"

// SandboxProvider short-circuits all aggregator traffic. Every placement and
// query reports a completed order so the rest of the pipeline can be
// exercised end to end without network access or live credentials.
type SandboxProvider struct {
	log *zap.Logger
}

func NewSandboxProvider(log *zap.Logger) *SandboxProvider {
	return &SandboxProvider{log: log.Named("providers.cbk.sandbox")}
}

func (p *SandboxProvider) PlaceOrder(ctx context.Context, order orderdomain.Order) Result {
	p.log.Debug("sandbox place order", zap.Int64("order_id", order.ID.Int64()), zap.String("type", string(order.Type)))
	return sandboxCompleted(fmt.Sprintf("SBX-%d", order.ID.Int64()))
}

func (p *SandboxProvider) QueryOrder(ctx context.Context, providerOrderID string) Result {
	return sandboxCompleted(providerOrderID)
}

func (p *SandboxProvider) Balance(ctx context.Context) (string, error) {
	return "1000000.00", nil
}

func (p *SandboxProvider) FetchCatalog(ctx context.Context, serviceType string) ([]CatalogItem, error) {
	return []CatalogItem{
		{ServiceType: serviceType, ProviderCode: "01", ProductCode: "sandbox-basic", Name: "Sandbox Basic", Amount: 1000},
		{ServiceType: serviceType, ProviderCode: "01", ProductCode: "sandbox-plus", Name: "Sandbox Plus", Amount: 2500},
	}, nil
}

func sandboxCompleted(providerOrderID string) Result {
	return Result{
		Signal:          orderdomain.SignalOrderCompleted,
		ProviderOrderID: providerOrderID,
		Tokens:          []orderdomain.Token{{Token: sandboxMeterToken}},
		Raw:             []byte(`{"status":"ORDER_COMPLETED","orderid":"` + providerOrderID + `","metertoken":"` + sandboxMeterToken + `"}`),
	}
}
