package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/vendora/internal/catalog/domain"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"github.com/smallbiznis/vendora/internal/providers/cbk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type catalogProvider struct {
	items map[string][]cbk.CatalogItem
	err   error
}

func (p *catalogProvider) PlaceOrder(ctx context.Context, order orderdomain.Order) cbk.Result {
	return cbk.Result{}
}

func (p *catalogProvider) QueryOrder(ctx context.Context, providerOrderID string) cbk.Result {
	return cbk.Result{}
}

func (p *catalogProvider) Balance(ctx context.Context) (string, error) { return "0.00", nil }

func (p *catalogProvider) FetchCatalog(ctx context.Context, serviceType string) ([]cbk.CatalogItem, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.items[serviceType], nil
}

func setupCatalogService(t *testing.T, provider cbk.Provider) (domain.Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))

	svc := New(Params{
		Config:   config.Config{DefaultCurrency: "NGN"},
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Provider: provider,
		Pricing:  nil, // falls back to the built-in margins
	})
	return svc, db
}

func TestImportAppliesMarginAndSlug(t *testing.T) {
	provider := &catalogProvider{items: map[string][]cbk.CatalogItem{
		"data": {
			{ServiceType: "data", ProviderCode: "MTN", ProductCode: "mtn-1gb", Name: "1GB Monthly", Amount: 300},
		},
	}}
	svc, db := setupCatalogService(t, provider)

	count, err := svc.Import(context.Background(), "data")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var product domain.Product
	require.NoError(t, db.First(&product, "id = ?", domain.DeriveID("data", "mtn-1gb")).Error)
	assert.Equal(t, "data-1gb-monthly", product.Slug)
	assert.Equal(t, 300.0, product.CostPrice)
	assert.Equal(t, 315.0, product.SellPrice, "data margin is 1.05")
	assert.Equal(t, "NGN", product.CurrencyCode)
	assert.True(t, product.Active)
}

func TestImportUpsertsInPlace(t *testing.T) {
	provider := &catalogProvider{items: map[string][]cbk.CatalogItem{
		"data": {
			{ServiceType: "data", ProviderCode: "MTN", ProductCode: "mtn-1gb", Name: "1GB Monthly", Amount: 300},
		},
	}}
	svc, db := setupCatalogService(t, provider)
	ctx := context.Background()

	_, err := svc.Import(ctx, "data")
	require.NoError(t, err)

	// The aggregator repriced the plan; the re-import converges the row.
	provider.items["data"][0].Amount = 400
	count, err := svc.Import(ctx, "data")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var total int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&total).Error)
	assert.EqualValues(t, 1, total)

	var product domain.Product
	require.NoError(t, db.First(&product).Error)
	assert.Equal(t, 400.0, product.CostPrice)
	assert.Equal(t, 420.0, product.SellPrice)
}

func TestImportEmptyCatalog(t *testing.T) {
	svc, _ := setupCatalogService(t, &catalogProvider{})
	_, err := svc.Import(context.Background(), "data")
	assert.ErrorIs(t, err, domain.ErrEmptyCatalog)
}

func TestImportSkipsItemsWithoutProductCode(t *testing.T) {
	provider := &catalogProvider{items: map[string][]cbk.CatalogItem{
		"tv": {
			{ServiceType: "tv", ProviderCode: "dstv", ProductCode: "", Name: "ghost"},
			{ServiceType: "tv", ProviderCode: "dstv", ProductCode: "dstv-padi", Name: "DStv Padi", Amount: 2500},
		},
	}}
	svc, db := setupCatalogService(t, provider)

	count, err := svc.Import(context.Background(), "tv")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var total int64
	require.NoError(t, db.Model(&domain.Product{}).Count(&total).Error)
	assert.EqualValues(t, 1, total)
}

func TestRecalculatePricesConvergesStaleRows(t *testing.T) {
	svc, db := setupCatalogService(t, &catalogProvider{})

	stale := domain.Product{
		ID:           domain.DeriveID("data", "mtn-1gb"),
		Type:         "data",
		Slug:         "data-1gb",
		Name:         "1GB",
		ProviderCode: "MTN",
		ProductCode:  "mtn-1gb",
		CostPrice:    300,
		SellPrice:    999, // imported under an old margin file
		CurrencyCode: "NGN",
		Active:       true,
	}
	current := domain.Product{
		ID:           domain.DeriveID("data", "mtn-2gb"),
		Type:         "data",
		Slug:         "data-2gb",
		Name:         "2GB",
		ProviderCode: "MTN",
		ProductCode:  "mtn-2gb",
		CostPrice:    100,
		SellPrice:    105,
		CurrencyCode: "NGN",
		Active:       true,
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&current).Error)

	updated, err := svc.RecalculatePrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	var got domain.Product
	require.NoError(t, db.First(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, 315.0, got.SellPrice)
}
