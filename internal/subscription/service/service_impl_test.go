package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/vendora/internal/clock"
	"github.com/smallbiznis/vendora/internal/config"
	"github.com/smallbiznis/vendora/internal/subscription/domain"
	tenantdomain "github.com/smallbiznis/vendora/internal/tenant/domain"
	tenantrepository "github.com/smallbiznis/vendora/internal/tenant/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// failingTenantRepo fails one of the two cascades to simulate a partial
// propagation.
type failingTenantRepo struct {
	tenantdomain.Repository
	brandErr error
}

func (f *failingTenantRepo) CascadeUserSubscription(ctx context.Context, userID, subscriptionID snowflake.ID) error {
	return nil
}

func (f *failingTenantRepo) CascadeBrandSubscription(ctx context.Context, brandID, subscriptionID snowflake.ID) error {
	return f.brandErr
}

type subFixture struct {
	svc   domain.Service
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
}

func setupSubscriptionService(t *testing.T, tenant tenantdomain.Repository) subFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Package{}, &domain.Subscription{},
		&tenantdomain.User{}, &tenantdomain.Brand{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if tenant == nil {
		tenant = tenantrepository.New(db)
	}
	svc := New(Params{
		Config: config.Config{FallbackPackageID: "1"},
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  fake,
		Tenant: tenant,
	})
	return subFixture{svc: svc, db: db, node: node, clock: fake}
}

func seedPackage(t *testing.T, db *gorm.DB, id snowflake.ID, level, durationDays int, addons datatypes.JSONMap) domain.Package {
	t.Helper()
	pkg := domain.Package{
		ID:           id,
		Name:         "Plan",
		Level:        level,
		CurrencyCode: "NGN",
		DurationDays: durationDays,
		Addons:       addons,
	}
	require.NoError(t, db.Create(&pkg).Error)
	return pkg
}

func TestGenerateUpsertsDerivedID(t *testing.T) {
	f := setupSubscriptionService(t, nil)
	ctx := context.Background()

	pkg := seedPackage(t, f.db, f.node.Generate(), 2, 30, datatypes.JSONMap{"api": true})
	userID := f.node.Generate()
	brandID := f.node.Generate()
	expires := f.clock.Now().AddDate(0, 0, 30)

	first, err := f.svc.Generate(ctx, domain.GenerateRequest{
		UserID: userID, BrandID: brandID, PackageID: pkg.ID, ExpiresAt: expires,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DeriveID(userID, brandID, pkg.ID), first.ID)
	assert.Equal(t, 2, first.Level)

	// Regenerating the same triple updates the row in place.
	second, err := f.svc.Generate(ctx, domain.GenerateRequest{
		UserID: userID, BrandID: brandID, PackageID: pkg.ID, ExpiresAt: expires.AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Model(&domain.Subscription{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var stored domain.Subscription
	require.NoError(t, f.db.First(&stored, "id = ?", first.ID).Error)
	assert.Equal(t, expires.AddDate(0, 0, 30).Unix(), stored.ExpiresAt.Unix())
}

func TestGenerateRejectsMissingFields(t *testing.T) {
	f := setupSubscriptionService(t, nil)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, domain.GenerateRequest{
		UserID: f.node.Generate(), BrandID: f.node.Generate(),
	})
	assert.ErrorIs(t, err, domain.ErrMissingFields)

	var count int64
	require.NoError(t, f.db.Model(&domain.Subscription{}).Count(&count).Error)
	assert.Zero(t, count, "validation failure must not write")
}

func TestGenerateUnknownPackage(t *testing.T) {
	f := setupSubscriptionService(t, nil)

	_, err := f.svc.Generate(context.Background(), domain.GenerateRequest{
		UserID:    f.node.Generate(),
		BrandID:   f.node.Generate(),
		PackageID: f.node.Generate(),
		ExpiresAt: f.clock.Now().AddDate(0, 0, 30),
	})
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)
}

func TestUpdateDependentsCascadesToAgentsAndSubBrands(t *testing.T) {
	f := setupSubscriptionService(t, nil)
	ctx := context.Background()

	boss := tenantdomain.User{ID: f.node.Generate(), Email: "boss@example.com"}
	agent := tenantdomain.User{ID: f.node.Generate(), BossID: boss.ID, Email: "agent@example.com"}
	other := tenantdomain.User{ID: f.node.Generate(), Email: "other@example.com"}
	parent := tenantdomain.Brand{ID: f.node.Generate(), Name: "Parent", Slug: "parent"}
	child := tenantdomain.Brand{ID: f.node.Generate(), Name: "Child", Slug: "child", ParentCompanyID: parent.ID}
	require.NoError(t, f.db.Create(&boss).Error)
	require.NoError(t, f.db.Create(&agent).Error)
	require.NoError(t, f.db.Create(&other).Error)
	require.NoError(t, f.db.Create(&parent).Error)
	require.NoError(t, f.db.Create(&child).Error)

	subID := f.node.Generate()
	require.NoError(t, f.svc.UpdateDependents(ctx, boss.ID, parent.ID, subID))

	for _, tc := range []struct {
		id   snowflake.ID
		want snowflake.ID
	}{
		{boss.ID, subID},
		{agent.ID, subID},
		{other.ID, 0},
	} {
		var user tenantdomain.User
		require.NoError(t, f.db.First(&user, "id = ?", tc.id).Error)
		assert.Equal(t, tc.want, user.SubscriptionID)
	}

	var got tenantdomain.Brand
	require.NoError(t, f.db.First(&got, "id = ?", child.ID).Error)
	assert.Equal(t, subID, got.SubscriptionID)
}

func TestUpdateDependentsPartialFailureFailsWhole(t *testing.T) {
	brandErr := errors.New("brand cascade down")
	f := setupSubscriptionService(t, &failingTenantRepo{brandErr: brandErr})

	err := f.svc.UpdateDependents(context.Background(), f.node.Generate(), f.node.Generate(), f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrCascadeIncomplete)
	assert.ErrorIs(t, err, brandErr)
}

func TestGetCurrentReturnsActiveSubscription(t *testing.T) {
	f := setupSubscriptionService(t, nil)
	ctx := context.Background()

	pkg := seedPackage(t, f.db, f.node.Generate(), 1, 30, nil)
	sub, err := f.svc.Generate(ctx, domain.GenerateRequest{
		UserID:    f.node.Generate(),
		BrandID:   f.node.Generate(),
		PackageID: pkg.ID,
		ExpiresAt: f.clock.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)

	got, err := f.svc.GetCurrent(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
}

func TestGetCurrentLazilyRenewsExpired(t *testing.T) {
	f := setupSubscriptionService(t, nil)
	ctx := context.Background()

	free := seedPackage(t, f.db, 1, 0, 36500, nil)
	paid := seedPackage(t, f.db, f.node.Generate(), 3, 30, nil)

	user := tenantdomain.User{ID: f.node.Generate(), Email: "boss@example.com"}
	brand := tenantdomain.Brand{ID: f.node.Generate(), Name: "Main", Slug: "main"}
	require.NoError(t, f.db.Create(&user).Error)
	require.NoError(t, f.db.Create(&brand).Error)

	sub, err := f.svc.Generate(ctx, domain.GenerateRequest{
		UserID:    user.ID,
		BrandID:   brand.ID,
		PackageID: paid.ID,
		ExpiresAt: f.clock.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)

	f.clock.Advance(31 * 24 * time.Hour)

	renewed, err := f.svc.GetCurrent(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, free.ID, renewed.PackageID)
	assert.Equal(t, 0, renewed.Level)
	assert.True(t, renewed.ExpiresAt.After(f.clock.Now().AddDate(50, 0, 0)),
		"free tier effectively never expires")

	// The renewal propagated to dependents.
	var gotUser tenantdomain.User
	require.NoError(t, f.db.First(&gotUser, "id = ?", user.ID).Error)
	assert.Equal(t, renewed.ID, gotUser.SubscriptionID)
}

func TestGetCurrentUnknownID(t *testing.T) {
	f := setupSubscriptionService(t, nil)
	_, err := f.svc.GetCurrent(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}
