// Package domain holds wallet balances. Wallet identity is derived from the
// owner and currency, never generated, so every settlement retry lands on the
// same row.
package domain

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Wallet is a per-user, per-currency balance. Value is the spendable balance;
// ShareValue accumulates revenue share and is paid out separately.
type Wallet struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	UserID       snowflake.ID `gorm:"not null;index"`
	CurrencyCode string       `gorm:"type:text;not null"`
	Value        float64      `gorm:"not null;default:0"`
	ShareValue   float64      `gorm:"not null;default:0"`
	Main         bool         `gorm:"not null;default:false"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Wallet) TableName() string { return "wallets" }

// DeriveID hashes (userID, currency) into a stable wallet id. The top bit is
// cleared so the result stays inside snowflake's positive id space.
func DeriveID(userID snowflake.ID, currencyCode string) snowflake.ID {
	h := fnv.New64a()
	fmt.Fprintf(h, "wallet:%d:%s", userID.Int64(), currencyCode)
	return snowflake.ID(int64(h.Sum64() & 0x7fffffffffffffff))
}

var (
	ErrWalletNotFound    = errors.New("wallet_not_found")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidCurrency   = errors.New("invalid_currency")
)
