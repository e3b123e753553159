package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/subscription/domain"
	tenantdomain "github.com/smallbiznis/vendora/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// freeTierDuration is the expiry horizon of a lazily renewed free-tier
// subscription. Effectively "never expires" without a nullable column.
const freeTierDuration = 100 * 365 * 24 * time.Hour

type Params struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Tenant tenantdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	tenant     tenantdomain.Repository
	fallbackID snowflake.ID
}

func New(p Params) domain.Service {
	fallbackID, err := strconv.ParseInt(p.Config.FallbackPackageID, 10, 64)
	if err != nil {
		p.Log.Warn("subscription.fallback_package.invalid",
			zap.String("fallback_package_id", p.Config.FallbackPackageID))
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("subscription.service"),
		clock:      p.Clock,
		tenant:     p.Tenant,
		fallbackID: snowflake.ID(fallbackID),
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.Subscription, error) {
	if req.UserID == 0 || req.BrandID == 0 || req.PackageID == 0 || req.ExpiresAt.IsZero() {
		return nil, domain.ErrMissingFields
	}

	var pkg domain.Package
	if err := s.db.WithContext(ctx).First(&pkg, "id = ?", req.PackageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPackageNotFound
		}
		return nil, err
	}

	now := s.clock.Now()
	sub := domain.Subscription{
		ID:        domain.DeriveID(req.UserID, req.BrandID, req.PackageID),
		UserID:    req.UserID,
		BrandID:   req.BrandID,
		PackageID: req.PackageID,
		Level:     pkg.Level,
		// Addon entitlements are captured now; later plan edits do not
		// retroactively change an existing subscriber.
		Addons:    pkg.Addons,
		ExpiresAt: req.ExpiresAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"level", "addons", "expires_at", "updated_at"}),
		}).
		Create(&sub).Error
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription.generate",
		zap.Int64("subscription_id", sub.ID.Int64()),
		zap.Int64("user_id", req.UserID.Int64()),
		zap.Int64("brand_id", req.BrandID.Int64()),
		zap.Int64("package_id", req.PackageID.Int64()),
		zap.Time("expires_at", sub.ExpiresAt))
	return &sub, nil
}

func (s *Service) UpdateDependents(ctx context.Context, userID, brandID, subscriptionID snowflake.ID) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.tenant.CascadeUserSubscription(gctx, userID, subscriptionID)
	})
	g.Go(func() error {
		return s.tenant.CascadeBrandSubscription(gctx, brandID, subscriptionID)
	})
	if err := g.Wait(); err != nil {
		// One side may have committed; the caller retries the whole
		// propagation rather than accept user and brand out of sync.
		return errors.Join(domain.ErrCascadeIncomplete, err)
	}
	return nil
}

func (s *Service) GetCurrent(ctx context.Context, id snowflake.ID) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}

	now := s.clock.Now()
	if !sub.Expired(now) {
		return &sub, nil
	}

	s.log.Info("subscription.lazy_renew",
		zap.Int64("subscription_id", sub.ID.Int64()),
		zap.Time("expired_at", sub.ExpiresAt))

	renewed, err := s.Generate(ctx, domain.GenerateRequest{
		UserID:    sub.UserID,
		BrandID:   sub.BrandID,
		PackageID: s.fallbackID,
		ExpiresAt: now.Add(freeTierDuration),
	})
	if err != nil {
		return nil, err
	}
	if err := s.UpdateDependents(ctx, sub.UserID, sub.BrandID, renewed.ID); err != nil {
		return nil, err
	}
	return renewed, nil
}
