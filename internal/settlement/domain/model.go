// Package domain holds the money-movement records the settlement engine
// sweeps: payments in, payouts out, currency trades.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusSettled   PaymentStatus = "settled"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is an inbound top-up. Confirmed payments are settled by crediting
// the payer's main wallet.
type Payment struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	BrandID      snowflake.ID  `gorm:"not null;index"`
	UserID       snowflake.ID  `gorm:"not null;index"`
	Reference    string        `gorm:"type:text;uniqueIndex;not null"`
	Amount       float64       `gorm:"not null"`
	CurrencyCode string        `gorm:"type:text;not null"`
	Status       PaymentStatus `gorm:"type:text;not null;index"`
	Gateway      string        `gorm:"type:text;not null"`
	SettledAt    *time.Time
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "payments" }

type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusSettled  PayoutStatus = "settled"
	PayoutStatusRejected PayoutStatus = "rejected"
)

// Payout withdraws accumulated revenue share from a user's wallet.
type Payout struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	BrandID      snowflake.ID `gorm:"not null;index"`
	UserID       snowflake.ID `gorm:"not null;index"`
	Amount       float64      `gorm:"not null"`
	CurrencyCode string       `gorm:"type:text;not null"`
	Status       PayoutStatus `gorm:"type:text;not null;index"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payout) TableName() string { return "payouts" }

type TradeStatus string

const (
	TradeStatusPending  TradeStatus = "pending"
	TradeStatusSettled  TradeStatus = "settled"
	TradeStatusRejected TradeStatus = "rejected"
)

// Trade converts a balance from one currency into the platform default at
// the current exchange rate.
type Trade struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	UserID       snowflake.ID `gorm:"not null;index"`
	CurrencyCode string       `gorm:"type:text;not null"`
	Amount       float64      `gorm:"not null"`
	Rate         float64      `gorm:"not null;default:0"`
	Status       TradeStatus  `gorm:"type:text;not null;index"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Trade) TableName() string { return "trades" }

var (
	ErrPaymentNotFound = errors.New("payment_not_found")
	ErrPayoutNotFound  = errors.New("payout_not_found")
)
