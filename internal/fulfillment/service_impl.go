// Package fulfillment drives utility orders through the bill aggregator:
// placing paid orders and chasing the ones still in flight.
package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	obsmetrics "github.com/smallbiznis/vendora/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"github.com/smallbiznis/vendora/internal/providers/cbk"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Operator float balance, refreshed whenever the aggregator refuses an order
// for lack of funds.
const (
	balanceCacheKey = "cbk:balance"
	balanceCacheTTL = 10 * time.Minute
)

// Service submits orders to the provider and applies the resulting signals.
type Service interface {
	// FulfillOrders places up to limit paid utility orders.
	FulfillOrders(ctx context.Context, limit int) (int, error)
	// QueryOrders re-checks up to limit orders stuck in processing.
	QueryOrders(ctx context.Context, limit int) (int, error)
}

type Params struct {
	fx.In

	Log       *zap.Logger
	OrderRepo orderdomain.Repository
	Provider  cbk.Provider
	Redis     *redis.Client `optional:"true"`
}

type service struct {
	log      *zap.Logger
	orders   orderdomain.Repository
	provider cbk.Provider
	redis    *redis.Client
}

func New(p Params) Service {
	return &service{
		log:      p.Log.Named("fulfillment.service"),
		orders:   p.OrderRepo,
		provider: p.Provider,
		redis:    p.Redis,
	}
}

func (s *service) FulfillOrders(ctx context.Context, limit int) (int, error) {
	orders, err := s.orders.FetchForFulfillment(ctx, limit)
	if err != nil {
		return 0, err
	}

	advanced := 0
	err = forEachBatch(ctx, orders, func(ctx context.Context, order orderdomain.Order) error {
		result := s.provider.PlaceOrder(ctx, order)
		ok, err := s.apply(ctx, order, result)
		if err != nil {
			return fmt.Errorf("order %d: %w", order.ID.Int64(), err)
		}
		if ok {
			advanced++
		}
		return nil
	})

	obsmetrics.Pipeline().AddBatchProcessed("fulfill_orders", "order", advanced)
	return advanced, err
}

func (s *service) QueryOrders(ctx context.Context, limit int) (int, error) {
	orders, err := s.orders.FetchForQuery(ctx, limit)
	if err != nil {
		return 0, err
	}

	advanced := 0
	err = forEachBatch(ctx, orders, func(ctx context.Context, order orderdomain.Order) error {
		result := s.provider.QueryOrder(ctx, order.ProviderOrderID)
		ok, err := s.apply(ctx, order, result)
		if err != nil {
			return fmt.Errorf("order %d: %w", order.ID.Int64(), err)
		}
		if ok {
			advanced++
		}
		return nil
	})

	obsmetrics.Pipeline().AddBatchProcessed("query_orders", "order", advanced)
	return advanced, err
}

// apply turns one provider result into at most one order write. It reports
// whether the order's status moved.
func (s *service) apply(ctx context.Context, order orderdomain.Order, result cbk.Result) (bool, error) {
	log := s.log.With(
		zap.Int64("order_id", order.ID.Int64()),
		zap.String("status", string(order.Status)),
	)

	if result.Faulted() {
		// Transient: the order stays put and the next run retries it.
		obsmetrics.Pipeline().IncProviderFault(obsmetrics.ProviderFaultTimeout)
		log.Warn("fulfillment.provider.fault", zap.String("fault", result.Fault))
		return false, nil
	}

	switch result.Signal {
	case orderdomain.SignalAuthenticationFailed, orderdomain.SignalInvalidCredentials:
		obsmetrics.Pipeline().IncProviderFault(obsmetrics.ProviderFaultAuth)
		log.Error("fulfillment.provider.auth_failed, check aggregator credentials")
		return false, nil
	case orderdomain.SignalInsufficientBalance:
		obsmetrics.Pipeline().IncProviderFault(obsmetrics.ProviderFaultBalance)
		log.Error("fulfillment.provider.insufficient_balance, operator float needs funding",
			zap.String("balance", s.recordBalance(ctx)))
		return false, nil
	case orderdomain.SignalError:
		obsmetrics.Pipeline().IncProviderFault(obsmetrics.ProviderFaultUnparsed)
		log.Warn("fulfillment.provider.unparsed_reply", zap.ByteString("raw", result.Raw))
		return false, s.orders.RecordProviderReply(ctx, order.ID, datatypes.JSON(result.Raw))
	}

	next := orderdomain.Next(order.Status, result.Signal)
	if next == order.Status {
		return false, nil
	}

	var tokens datatypes.JSON
	if len(result.Tokens) > 0 {
		encoded, err := json.Marshal(result.Tokens)
		if err != nil {
			return false, err
		}
		tokens = datatypes.JSON(encoded)
	}

	moved, err := s.orders.AdvanceStatus(ctx, order.ID, order.Status, next, result.ProviderOrderID, tokens, datatypes.JSON(result.Raw))
	if err != nil {
		if errors.Is(err, orderdomain.ErrStaleTransition) {
			return false, nil
		}
		return false, err
	}
	if moved {
		obsmetrics.Pipeline().IncOrderTransition(string(order.Status), string(next))
		log.Info("fulfillment.order.advance",
			zap.String("signal", string(result.Signal)),
			zap.String("next", string(next)),
			zap.String("provider_order_id", result.ProviderOrderID))
	}
	return moved, nil
}

// recordBalance fetches the operator's float at the aggregator and caches it
// in redis so the shortfall behind a balance fault is visible afterwards.
func (s *service) recordBalance(ctx context.Context) string {
	balance, err := s.provider.Balance(ctx)
	if err != nil {
		s.log.Warn("fulfillment.provider.balance_unavailable", zap.Error(err))
		return ""
	}
	if s.redis != nil {
		if err := s.redis.Set(ctx, balanceCacheKey, balance, balanceCacheTTL).Err(); err != nil {
			s.log.Warn("fulfillment.provider.balance_cache_failed", zap.Error(err))
		}
	}
	return balance
}
