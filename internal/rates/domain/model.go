// Package domain holds the exchange and revenue-share rate tables.
package domain

import (
	"errors"
	"time"
)

// ExchangeRate converts one unit of CurrencyCode into the platform's default
// currency.
type ExchangeRate struct {
	CurrencyCode string    `gorm:"primaryKey;type:text"`
	Rate         float64   `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ExchangeRate) TableName() string { return "exchange_rates" }

// RevenueRate is the revenue-share fraction granted to a subscriber at a
// given plan level.
type RevenueRate struct {
	Level     int       `gorm:"primaryKey"`
	Rate      float64   `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RevenueRate) TableName() string { return "revenue_rates" }

var (
	ErrRateNotFound = errors.New("rate_not_found")
)
