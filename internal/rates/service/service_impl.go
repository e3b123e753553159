package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/vendora/internal/rates/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	keyExchangeRate = "rates:fx:%s"
	keyRevenueRate  = "rates:rev:%d"
	rateCacheTTL    = time.Hour
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Redis *redis.Client
	Log   *zap.Logger
}

type Service struct {
	db    *gorm.DB
	redis *redis.Client
	log   *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		redis: p.Redis,
		log:   p.Log.Named("rates.service"),
	}
}

func (s *Service) ExchangeRate(ctx context.Context, currencyCode string) (float64, error) {
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	key := fmt.Sprintf(keyExchangeRate, currencyCode)

	if rate, ok := s.cached(ctx, key); ok {
		return rate, nil
	}

	var row domain.ExchangeRate
	if err := s.db.WithContext(ctx).First(&row, "currency_code = ?", currencyCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrRateNotFound
		}
		return 0, err
	}

	s.store(ctx, key, row.Rate)
	return row.Rate, nil
}

func (s *Service) RevenueRate(ctx context.Context, level int) (float64, error) {
	key := fmt.Sprintf(keyRevenueRate, level)

	if rate, ok := s.cached(ctx, key); ok {
		return rate, nil
	}

	var row domain.RevenueRate
	if err := s.db.WithContext(ctx).First(&row, "level = ?", level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrRateNotFound
		}
		return 0, err
	}

	s.store(ctx, key, row.Rate)
	return row.Rate, nil
}

func (s *Service) RefreshExchangeRates(ctx context.Context) (int, error) {
	var rows []domain.ExchangeRate
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return 0, err
	}
	for _, row := range rows {
		s.store(ctx, fmt.Sprintf(keyExchangeRate, row.CurrencyCode), row.Rate)
	}
	s.log.Info("rates.exchange.refresh", zap.Int("count", len(rows)))
	return len(rows), nil
}

func (s *Service) RefreshRevenueRates(ctx context.Context) (int, error) {
	var rows []domain.RevenueRate
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return 0, err
	}
	for _, row := range rows {
		s.store(ctx, fmt.Sprintf(keyRevenueRate, row.Level), row.Rate)
	}
	s.log.Info("rates.revenue.refresh", zap.Int("count", len(rows)))
	return len(rows), nil
}

// cached reads one rate from redis. A cache miss or a redis error both mean
// "go to the database"; the distinction only matters for logging.
func (s *Service) cached(ctx context.Context, key string) (float64, bool) {
	if s.redis == nil {
		return 0, false
	}
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Debug("rates.cache.read_failed", zap.String("key", key), zap.Error(err))
		}
		return 0, false
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return rate, true
}

func (s *Service) store(ctx context.Context, key string, rate float64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, key, strconv.FormatFloat(rate, 'f', -1, 64), rateCacheTTL).Err(); err != nil {
		s.log.Debug("rates.cache.write_failed", zap.String("key", key), zap.Error(err))
	}
}
