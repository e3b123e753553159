package pipeline

import (
	"context"
	"testing"

	catalogdomain "github.com/smallbiznis/vendora/internal/catalog/domain"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateDataBackfillsSettledAndSlugs(t *testing.T) {
	recorder := newStageRecorder()
	o, db := setupOrchestrator(t, recorder, Config{})
	require.NoError(t, db.AutoMigrate(&orderdomain.Order{}, &catalogdomain.Product{}))
	ctx := context.Background()

	// A completed order that predates the settled flag.
	legacy := orderdomain.Order{
		ID:           1001,
		BrandID:      1,
		UserID:       1,
		ProductID:    "mtn-1gb",
		Type:         orderdomain.OrderTypeData,
		Status:       orderdomain.OrderStatusCompleted,
		Amount:       300,
		CurrencyCode: "NGN",
	}
	require.NoError(t, db.Create(&legacy).Error)

	// A product row imported before slugs existed.
	bare := catalogdomain.Product{
		ID:           catalogdomain.DeriveID("data", "mtn-1gb"),
		Type:         "data",
		Name:         "1GB Monthly",
		ProviderCode: "MTN",
		ProductCode:  "mtn-1gb",
		CostPrice:    300,
		SellPrice:    315,
		CurrencyCode: "NGN",
		Active:       true,
	}
	require.NoError(t, db.Create(&bare).Error)

	require.NoError(t, o.Dispatch(ctx, string(StageMigrateData)))

	var gotOrder orderdomain.Order
	require.NoError(t, db.First(&gotOrder, "id = ?", legacy.ID).Error)
	assert.True(t, gotOrder.Settled)

	var gotProduct catalogdomain.Product
	require.NoError(t, db.First(&gotProduct, "id = ?", bare.ID).Error)
	assert.Equal(t, "data-1gb-monthly", gotProduct.Slug)

	// A second run finds nothing left to converge.
	run := PipelineRun{}
	require.NoError(t, o.Dispatch(ctx, string(StageMigrateData)))
	require.NoError(t, db.Order("id DESC").First(&run).Error)
	assert.Zero(t, run.ProcessedCount)
}
