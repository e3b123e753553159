package service

import (
	"context"
	"math"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/vendora/internal/catalog/domain"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	obsmetrics "github.com/smallbiznis/vendora/internal/observability/metrics"
	"github.com/smallbiznis/vendora/internal/providers/cbk"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Provider cbk.Provider
	Pricing  *config.PricingHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	provider cbk.Provider
	pricing  *config.PricingHolder
	currency string
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		clock:    p.Clock,
		provider: p.Provider,
		pricing:  p.Pricing,
		currency: p.Config.DefaultCurrency,
	}
}

func (s *Service) Import(ctx context.Context, serviceType string) (int, error) {
	serviceType = strings.ToLower(strings.TrimSpace(serviceType))

	items, err := s.provider.FetchCatalog(ctx, serviceType)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, domain.ErrEmptyCatalog
	}

	margin := s.pricing.Current().MarginFor(serviceType)
	now := s.clock.Now()

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item.ProductCode == "" {
			continue
		}
		name := item.Name
		if name == "" {
			name = item.ProductCode
		}
		products = append(products, domain.Product{
			ID:           domain.DeriveID(serviceType, item.ProductCode),
			Type:         serviceType,
			Slug:         slug.Make(serviceType + "-" + name),
			Name:         name,
			ProviderCode: item.ProviderCode,
			ProductCode:  item.ProductCode,
			CostPrice:    item.Amount,
			SellPrice:    roundPrice(item.Amount * margin),
			CurrencyCode: s.currency,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "slug", "provider_code", "cost_price", "sell_price", "active", "updated_at",
			}),
		}).
		CreateInBatches(products, 100).Error
	if err != nil {
		return 0, err
	}

	s.log.Info("catalog.import",
		zap.String("service_type", serviceType),
		zap.Int("count", len(products)),
		zap.Float64("margin", margin))
	obsmetrics.Pipeline().AddBatchProcessed("import_"+serviceType, "product", len(products))
	return len(products), nil
}

// RecalculatePrices walks active products and reapplies the live margins.
// Imports may have run with an older margin file; this converges sell prices
// without waiting for the next full import.
func (s *Service) RecalculatePrices(ctx context.Context) (int, error) {
	var products []domain.Product
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&products).Error; err != nil {
		return 0, err
	}

	pricing := s.pricing.Current()
	now := s.clock.Now()
	updated := 0
	for _, product := range products {
		sell := roundPrice(product.CostPrice * pricing.MarginFor(product.Type))
		if sell == product.SellPrice {
			continue
		}
		err := s.db.WithContext(ctx).
			Model(&domain.Product{}).
			Where("id = ?", product.ID).
			Updates(map[string]any{"sell_price": sell, "updated_at": now}).Error
		if err != nil {
			return updated, err
		}
		updated++
	}

	s.log.Info("catalog.recalc_prices", zap.Int("updated", updated))
	return updated, nil
}

func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
