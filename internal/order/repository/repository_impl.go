package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	domain "github.com/smallbiznis/vendora/internal/order/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) FetchForFulfillment(ctx context.Context, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("status IN ?", []domain.OrderStatus{domain.OrderStatusPaid}).
		Where("type IN ?", utilityTypes()).
		Order("id").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *repo) FetchForQuery(ctx context.Context, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.OrderStatusProcessing).
		Where("provider_order_id <> ''").
		Order("id").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *repo) FetchForSettlement(ctx context.Context, limit int) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.OrderStatusProcessed).
		Where("settled = ?", false).
		Order("id").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

// AdvanceStatus applies a conditional transition: the UPDATE only matches
// while the order still carries the expected prior status, so a stale retry
// against a terminal order touches zero rows.
func (r *repo) AdvanceStatus(ctx context.Context, id snowflake.ID, from, to domain.OrderStatus, providerOrderID string, tokens datatypes.JSON, raw datatypes.JSON) (bool, error) {
	if to.IsTerminal() && from.IsTerminal() {
		return false, domain.ErrStaleTransition
	}

	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if providerOrderID != "" {
		updates["provider_order_id"] = providerOrderID
	}
	if tokens != nil {
		updates["tokens"] = tokens
	}
	if raw != nil {
		updates["fulfill_response"] = raw
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Where("status NOT IN ?", terminalStatuses()).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) MarkSettled(ctx context.Context, id snowflake.ID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Where("settled = ?", false).
		Updates(map[string]any{
			"settled":    true,
			"status":     domain.OrderStatusCompleted,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) RecordProviderReply(ctx context.Context, id snowflake.ID, raw datatypes.JSON) error {
	return r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"fulfill_response": raw,
			"updated_at":       time.Now().UTC(),
		}).Error
}

func utilityTypes() []domain.OrderType {
	return []domain.OrderType{
		domain.OrderTypeData,
		domain.OrderTypeAirtime,
		domain.OrderTypeTV,
		domain.OrderTypeElectric,
		domain.OrderTypeBetting,
		domain.OrderTypeEdu,
	}
}

func terminalStatuses() []domain.OrderStatus {
	return []domain.OrderStatus{
		domain.OrderStatusCompleted,
		domain.OrderStatusRefunded,
		domain.OrderStatusCancelled,
	}
}
