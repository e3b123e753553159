package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/vendora/internal/rates/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// The cache is an optimization, not a dependency: every test runs with no
// redis client wired and falls through to the database.
func setupRatesService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ExchangeRate{}, &domain.RevenueRate{}))
	return New(Params{DB: db, Redis: nil, Log: zap.NewNop()}), db
}

func TestExchangeRateLookup(t *testing.T) {
	svc, db := setupRatesService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.ExchangeRate{CurrencyCode: "USD", Rate: 1500}).Error)

	rate, err := svc.ExchangeRate(ctx, "usd")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, rate)

	_, err = svc.ExchangeRate(ctx, "EUR")
	assert.ErrorIs(t, err, domain.ErrRateNotFound)
}

func TestRevenueRateLookup(t *testing.T) {
	svc, db := setupRatesService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.RevenueRate{Level: 2, Rate: 0.02}).Error)

	rate, err := svc.RevenueRate(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.02, rate)

	_, err = svc.RevenueRate(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrRateNotFound)
}

func TestRefreshCountsRows(t *testing.T) {
	svc, db := setupRatesService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&domain.ExchangeRate{CurrencyCode: "USD", Rate: 1500}).Error)
	require.NoError(t, db.Create(&domain.ExchangeRate{CurrencyCode: "GBP", Rate: 1900}).Error)
	require.NoError(t, db.Create(&domain.RevenueRate{Level: 0, Rate: 0}).Error)

	count, err := svc.RefreshExchangeRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.RefreshRevenueRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
