package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	obsmetrics "github.com/smallbiznis/vendora/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	ratesdomain "github.com/smallbiznis/vendora/internal/rates/domain"
	"github.com/smallbiznis/vendora/internal/settlement/domain"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	tenantdomain "github.com/smallbiznis/vendora/internal/tenant/domain"
	walletdomain "github.com/smallbiznis/vendora/internal/wallet/domain"
	"github.com/smallbiznis/vendora/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// pendingPaymentTTL is how long a payment may sit pending before the sweep
// writes it off as failed.
const pendingPaymentTTL = 24 * time.Hour

type Params struct {
	fx.In

	Config          config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	OrderRepo       orderdomain.Repository
	TenantRepo      tenantdomain.Repository
	WalletSvc       walletdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	RatesSvc        ratesdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	orderRepo       orderdomain.Repository
	tenantRepo      tenantdomain.Repository
	walletSvc       walletdomain.Service
	subscriptionSvc subscriptiondomain.Service
	ratesSvc        ratesdomain.Service
	payments        repository.Repository[domain.Payment]
	payouts         repository.Repository[domain.Payout]
	trades          repository.Repository[domain.Trade]
	fallbackPkgID   snowflake.ID
	defaultCurrency string
	sandbox         bool
}

func New(p Params) domain.Service {
	fallbackID, _ := strconv.ParseInt(p.Config.FallbackPackageID, 10, 64)
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("settlement.service"),
		clock:           p.Clock,
		orderRepo:       p.OrderRepo,
		tenantRepo:      p.TenantRepo,
		walletSvc:       p.WalletSvc,
		subscriptionSvc: p.SubscriptionSvc,
		ratesSvc:        p.RatesSvc,
		payments:        repository.ProvideStore[domain.Payment](p.DB),
		payouts:         repository.ProvideStore[domain.Payout](p.DB),
		trades:          repository.ProvideStore[domain.Trade](p.DB),
		fallbackPkgID:   snowflake.ID(fallbackID),
		defaultCurrency: p.Config.DefaultCurrency,
		sandbox:         !p.Config.IsLive(),
	}
}

func (s *Service) SettleOrders(ctx context.Context, limit int) (int, error) {
	orders, err := s.orderRepo.FetchForSettlement(ctx, limit)
	if err != nil {
		return 0, err
	}

	var errs error
	settled := 0
	for _, order := range orders {
		if err := s.settleOrder(ctx, order); err != nil {
			errs = errors.Join(errs, fmt.Errorf("order %d: %w", order.ID.Int64(), err))
			continue
		}
		settled++
	}

	obsmetrics.Pipeline().AddBatchProcessed("settle_orders", "order", settled)
	return settled, errs
}

func (s *Service) settleOrder(ctx context.Context, order orderdomain.Order) error {
	if order.Type == orderdomain.OrderTypePackage {
		if err := s.settlePackageOrder(ctx, order); err != nil {
			return err
		}
	} else if err := s.creditRevenueShare(ctx, order); err != nil {
		return err
	}

	ok, err := s.orderRepo.MarkSettled(ctx, order.ID)
	if err != nil {
		return err
	}
	if !ok {
		// A concurrent run got here first. The upstream effects are
		// idempotent, so this is a no-op rather than a failure.
		s.log.Debug("settlement.order.already_settled", zap.Int64("order_id", order.ID.Int64()))
	}
	return nil
}

// settlePackageOrder turns a paid plan purchase into a subscription and
// propagates it to dependents. A missing plan degrades to the free tier
// rather than leaving the buyer with nothing.
func (s *Service) settlePackageOrder(ctx context.Context, order orderdomain.Order) error {
	packageID, err := strconv.ParseInt(order.ProductID, 10, 64)
	if err != nil {
		return fmt.Errorf("package order %d has product id %q: %w", order.ID.Int64(), order.ProductID, err)
	}

	var pkg subscriptiondomain.Package
	dbErr := s.db.WithContext(ctx).First(&pkg, "id = ?", packageID).Error
	if dbErr != nil {
		if !errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return dbErr
		}
		s.log.Warn("settlement.package.missing, falling back to free tier",
			zap.Int64("order_id", order.ID.Int64()),
			zap.Int64("package_id", packageID))
		if err := s.db.WithContext(ctx).First(&pkg, "id = ?", s.fallbackPkgID).Error; err != nil {
			return subscriptiondomain.ErrPackageNotFound
		}
	}

	expiresAt := s.clock.Now().AddDate(0, 0, pkg.DurationDays)
	sub, err := s.subscriptionSvc.Generate(ctx, subscriptiondomain.GenerateRequest{
		UserID:    order.UserID,
		BrandID:   order.BrandID,
		PackageID: pkg.ID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return err
	}
	return s.subscriptionSvc.UpdateDependents(ctx, order.UserID, order.BrandID, sub.ID)
}

func (s *Service) creditRevenueShare(ctx context.Context, order orderdomain.Order) error {
	user, err := s.tenantRepo.FindUser(ctx, order.UserID)
	if err != nil {
		return err
	}
	if user.SubscriptionID == 0 {
		return nil
	}

	sub, err := s.subscriptionSvc.GetCurrent(ctx, user.SubscriptionID)
	if err != nil {
		return err
	}

	rate, err := s.ratesSvc.RevenueRate(ctx, sub.Level)
	if err != nil {
		if errors.Is(err, ratesdomain.ErrRateNotFound) {
			return nil
		}
		return err
	}

	share := order.Amount * rate
	if share <= 0 {
		return nil
	}
	return s.walletSvc.CreditShare(ctx, order.UserID, order.CurrencyCode, share)
}

func (s *Service) QueryPayments(ctx context.Context, limit int) (int, error) {
	payments, err := s.payments.Find(ctx,
		&domain.Payment{Status: domain.PaymentStatusPending},
		repository.WithOrder("id"), repository.WithLimit(limit))
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	var errs error
	resolved := 0
	for _, payment := range payments {
		to := domain.PaymentStatusConfirmed
		// Gateways confirm via callback; the sweep only promotes gateways
		// we own outright and expires everything that sat pending too long.
		switch {
		case s.sandbox || payment.Gateway == "manual":
		case now.Sub(payment.CreatedAt) > pendingPaymentTTL:
			to = domain.PaymentStatusFailed
		default:
			continue
		}

		result := s.db.WithContext(ctx).
			Model(&domain.Payment{}).
			Where("id = ?", payment.ID).
			Where("status = ?", domain.PaymentStatusPending).
			Updates(map[string]any{"status": to, "updated_at": now})
		if result.Error != nil {
			errs = errors.Join(errs, fmt.Errorf("payment %d: %w", payment.ID.Int64(), result.Error))
			continue
		}
		if result.RowsAffected > 0 {
			resolved++
		}
	}

	obsmetrics.Pipeline().AddBatchProcessed("query_payments", "payment", resolved)
	return resolved, errs
}

func (s *Service) SettlePayments(ctx context.Context, limit int) (int, error) {
	payments, err := s.payments.Find(ctx,
		&domain.Payment{Status: domain.PaymentStatusConfirmed},
		repository.WithOrder("id"), repository.WithLimit(limit))
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	var errs error
	settled := 0
	for _, payment := range payments {
		// Claim first: the conditional update is the dedup gate, so a
		// concurrent run cannot credit the same payment twice.
		result := s.db.WithContext(ctx).
			Model(&domain.Payment{}).
			Where("id = ?", payment.ID).
			Where("status = ?", domain.PaymentStatusConfirmed).
			Updates(map[string]any{
				"status":     domain.PaymentStatusSettled,
				"settled_at": now,
				"updated_at": now,
			})
		if result.Error != nil {
			errs = errors.Join(errs, fmt.Errorf("payment %d: %w", payment.ID.Int64(), result.Error))
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}

		if err := s.walletSvc.Credit(ctx, payment.UserID, payment.CurrencyCode, payment.Amount); err != nil {
			// The claim committed but the credit did not; surfaced for
			// reconciliation rather than silently retried.
			errs = errors.Join(errs, fmt.Errorf("payment %d credit: %w", payment.ID.Int64(), err))
			continue
		}
		settled++
	}

	obsmetrics.Pipeline().AddBatchProcessed("settle_payments", "payment", settled)
	return settled, errs
}

func (s *Service) SettlePayouts(ctx context.Context, limit int) (int, error) {
	payouts, err := s.payouts.Find(ctx,
		&domain.Payout{Status: domain.PayoutStatusPending},
		repository.WithOrder("id"), repository.WithLimit(limit))
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	var errs error
	settled := 0
	for _, payout := range payouts {
		// Claim first: the conditional update is the dedup gate, so two
		// overlapping sweeps cannot debit the same payout twice.
		result := s.db.WithContext(ctx).
			Model(&domain.Payout{}).
			Where("id = ?", payout.ID).
			Where("status = ?", domain.PayoutStatusPending).
			Updates(map[string]any{"status": domain.PayoutStatusSettled, "updated_at": now})
		if result.Error != nil {
			errs = errors.Join(errs, fmt.Errorf("payout %d: %w", payout.ID.Int64(), result.Error))
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}

		if debitErr := s.walletSvc.DebitShare(ctx, payout.UserID, payout.CurrencyCode, payout.Amount); debitErr != nil {
			if !errors.Is(debitErr, walletdomain.ErrInsufficientFunds) && !errors.Is(debitErr, walletdomain.ErrWalletNotFound) {
				// The claim committed but the debit did not; surfaced
				// for reconciliation rather than silently retried.
				errs = errors.Join(errs, fmt.Errorf("payout %d debit: %w", payout.ID.Int64(), debitErr))
				continue
			}
			if err := s.db.WithContext(ctx).
				Model(&domain.Payout{}).
				Where("id = ?", payout.ID).
				Where("status = ?", domain.PayoutStatusSettled).
				Updates(map[string]any{"status": domain.PayoutStatusRejected, "updated_at": now}).Error; err != nil {
				errs = errors.Join(errs, fmt.Errorf("payout %d reject: %w", payout.ID.Int64(), err))
				continue
			}
			s.log.Warn("settlement.payout.rejected",
				zap.Int64("payout_id", payout.ID.Int64()),
				zap.Float64("amount", payout.Amount),
				zap.Error(debitErr))
			continue
		}
		settled++
	}

	obsmetrics.Pipeline().AddBatchProcessed("settle_payouts", "payout", settled)
	return settled, errs
}

func (s *Service) SettleTrades(ctx context.Context, limit int) (int, error) {
	trades, err := s.trades.Find(ctx,
		&domain.Trade{Status: domain.TradeStatusPending},
		repository.WithOrder("id"), repository.WithLimit(limit))
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	var errs error
	settled := 0
	for _, trade := range trades {
		rate, err := s.ratesSvc.ExchangeRate(ctx, trade.CurrencyCode)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("trade %d: %w", trade.ID.Int64(), err))
			continue
		}

		// Claim first, debit second: the conditional update is the dedup
		// gate, so two overlapping sweeps cannot debit the same trade
		// twice.
		result := s.db.WithContext(ctx).
			Model(&domain.Trade{}).
			Where("id = ?", trade.ID).
			Where("status = ?", domain.TradeStatusPending).
			Updates(map[string]any{
				"status":     domain.TradeStatusSettled,
				"rate":       rate,
				"updated_at": now,
			})
		if result.Error != nil {
			errs = errors.Join(errs, fmt.Errorf("trade %d: %w", trade.ID.Int64(), result.Error))
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}

		if debitErr := s.walletSvc.Debit(ctx, trade.UserID, trade.CurrencyCode, trade.Amount); debitErr != nil {
			if !errors.Is(debitErr, walletdomain.ErrInsufficientFunds) && !errors.Is(debitErr, walletdomain.ErrWalletNotFound) {
				// The claim committed but the debit did not; surfaced
				// for reconciliation rather than silently retried.
				errs = errors.Join(errs, fmt.Errorf("trade %d debit: %w", trade.ID.Int64(), debitErr))
				continue
			}
			if err := s.db.WithContext(ctx).
				Model(&domain.Trade{}).
				Where("id = ?", trade.ID).
				Where("status = ?", domain.TradeStatusSettled).
				Updates(map[string]any{"status": domain.TradeStatusRejected, "updated_at": now}).Error; err != nil {
				errs = errors.Join(errs, fmt.Errorf("trade %d reject: %w", trade.ID.Int64(), err))
				continue
			}
			s.log.Warn("settlement.trade.rejected",
				zap.Int64("trade_id", trade.ID.Int64()),
				zap.Float64("amount", trade.Amount),
				zap.Error(debitErr))
			continue
		}

		if err := s.walletSvc.Credit(ctx, trade.UserID, s.defaultCurrency, trade.Amount*rate); err != nil {
			errs = errors.Join(errs, fmt.Errorf("trade %d credit: %w", trade.ID.Int64(), err))
			continue
		}
		settled++
	}

	obsmetrics.Pipeline().AddBatchProcessed("settle_trades", "trade", settled)
	return settled, errs
}
