// Package seed bootstraps the records a fresh install needs before the
// pipeline can do anything useful: the main brand, the free-tier package and
// baseline rates.
package seed

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/vendora/internal/config"
	ratesdomain "github.com/smallbiznis/vendora/internal/rates/domain"
	subscriptiondomain "github.com/smallbiznis/vendora/internal/subscription/domain"
	tenantdomain "github.com/smallbiznis/vendora/internal/tenant/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultBrandName = "Main"
	defaultBrandSlug = "main"
)

// EnsureDefaults seeds the main brand, free package and baseline rates.
// Every write checks for an existing row first, so startup re-runs are
// no-ops.
func EnsureDefaults(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureMainBrand(ctx, tx, node, cfg.DefaultCurrency); err != nil {
			return err
		}
		if err := ensureFreePackage(ctx, tx, cfg.FallbackPackageID); err != nil {
			return err
		}
		return ensureBaselineRates(ctx, tx, cfg.DefaultCurrency)
	})
}

func ensureMainBrand(ctx context.Context, tx *gorm.DB, node *snowflake.Node, currency string) error {
	var brand tenantdomain.Brand
	err := tx.WithContext(ctx).Where("slug = ?", defaultBrandSlug).First(&brand).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&tenantdomain.Brand{
		ID:              node.Generate(),
		Name:            defaultBrandName,
		Slug:            defaultBrandSlug,
		DefaultCurrency: currency,
		CreatedAt:       now,
		UpdatedAt:       now,
	}).Error
}

func ensureFreePackage(ctx context.Context, tx *gorm.DB, fallbackID string) error {
	id, err := strconv.ParseInt(fallbackID, 10, 64)
	if err != nil {
		return errors.New("fallback package id must be numeric")
	}

	var pkg subscriptiondomain.Package
	dbErr := tx.WithContext(ctx).First(&pkg, "id = ?", id).Error
	if dbErr == nil {
		return nil
	}
	if !errors.Is(dbErr, gorm.ErrRecordNotFound) {
		return dbErr
	}

	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&subscriptiondomain.Package{
		ID:           snowflake.ID(id),
		Name:         "Free",
		Level:        0,
		Price:        0,
		DurationDays: 36500,
		Addons:       datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}).Error
}

func ensureBaselineRates(ctx context.Context, tx *gorm.DB, currency string) error {
	var fx ratesdomain.ExchangeRate
	err := tx.WithContext(ctx).First(&fx, "currency_code = ?", currency).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = tx.WithContext(ctx).Create(&ratesdomain.ExchangeRate{
			CurrencyCode: currency,
			Rate:         1,
			UpdatedAt:    time.Now().UTC(),
		}).Error
	}
	if err != nil {
		return err
	}

	var rev ratesdomain.RevenueRate
	err = tx.WithContext(ctx).First(&rev, "level = ?", 0).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.WithContext(ctx).Create(&ratesdomain.RevenueRate{
			Level:     0,
			Rate:      0,
			UpdatedAt: time.Now().UTC(),
		}).Error
	}
	return err
}
