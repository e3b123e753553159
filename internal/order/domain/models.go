// Package domain contains persistence models and the status state machine for orders.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// OrderStatus represents lifecycle states for an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusProcessed  OrderStatus = "processed"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusInvalid    OrderStatus = "invalid"
)

// IsTerminal reports whether the status is absorbing: once reached, no
// provider reply may move the order away from it.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusRefunded, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// OrderType classifies what is being purchased.
type OrderType string

const (
	OrderTypeData     OrderType = "data"
	OrderTypeAirtime  OrderType = "airtime"
	OrderTypeTV       OrderType = "tv"
	OrderTypeElectric OrderType = "electric"
	OrderTypeBetting  OrderType = "betting"
	OrderTypeEdu      OrderType = "education"
	OrderTypeDigital  OrderType = "digital"
	OrderTypePhysical OrderType = "physical"
	OrderTypePackage  OrderType = "package"
)

// IsUtility reports whether fulfillment goes through the bill aggregator.
func (t OrderType) IsUtility() bool {
	switch t {
	case OrderTypeData, OrderTypeAirtime, OrderTypeTV, OrderTypeElectric, OrderTypeBetting, OrderTypeEdu:
		return true
	default:
		return false
	}
}

// Token is one redeemable code returned by the aggregator, e.g. a meter token.
type Token struct {
	Token string `json:"token"`
}

// Order captures one purchase of a utility, digital, physical or package item.
type Order struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	BrandID         snowflake.ID      `gorm:"not null;index"`
	UserID          snowflake.ID      `gorm:"not null;index"`
	ProductID       string            `gorm:"type:text;not null"`
	Type            OrderType         `gorm:"type:text;not null"`
	Status          OrderStatus       `gorm:"type:text;not null;index"`
	Amount          float64           `gorm:"not null"`
	CurrencyCode    string            `gorm:"type:text;not null"`
	Recipient       string            `gorm:"type:text"`
	ProviderOrderID string            `gorm:"type:text;index"`
	Tokens          datatypes.JSON    `gorm:"type:jsonb"`
	FulfillResponse datatypes.JSON    `gorm:"type:jsonb"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb"`
	Settled         bool              `gorm:"not null;default:false;index"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

var (
	ErrOrderNotFound   = errors.New("order_not_found")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrStaleTransition = errors.New("stale_transition")
)
