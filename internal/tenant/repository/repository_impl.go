package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	domain "github.com/smallbiznis/vendora/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindBrand(ctx context.Context, id snowflake.ID) (*domain.Brand, error) {
	var brand domain.Brand
	err := r.db.WithContext(ctx).First(&brand, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBrandNotFound
		}
		return nil, err
	}
	return &brand, nil
}

// CascadeUserSubscription covers the user and every agent under them in one
// statement. Re-running the same cascade is a no-op at the data level.
func (r *repo) CascadeUserSubscription(ctx context.Context, userID, subscriptionID snowflake.ID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? OR boss_id = ?", userID, userID).
		Updates(map[string]any{
			"subscription_id": subscriptionID,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *repo) CascadeBrandSubscription(ctx context.Context, brandID, subscriptionID snowflake.ID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Brand{}).
		Where("id = ? OR parent_company_id = ?", brandID, brandID).
		Updates(map[string]any{
			"subscription_id": subscriptionID,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrBrandNotFound
	}
	return nil
}
