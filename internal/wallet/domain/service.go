package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service mutates wallet balances. All mutations are additive conditional
// updates against the derived wallet row, creating it on first touch.
type Service interface {
	// Ensure returns the wallet for (userID, currency), creating it when
	// absent. The first wallet in the currency marked main stays main.
	Ensure(ctx context.Context, userID snowflake.ID, currencyCode string, main bool) (*Wallet, error)
	Credit(ctx context.Context, userID snowflake.ID, currencyCode string, amount float64) error
	CreditShare(ctx context.Context, userID snowflake.ID, currencyCode string, amount float64) error
	// Debit fails with ErrInsufficientFunds when the balance cannot cover
	// the amount; the check and the write are one conditional statement.
	Debit(ctx context.Context, userID snowflake.ID, currencyCode string, amount float64) error
	// DebitShare withdraws from the revenue-share balance, same contract
	// as Debit.
	DebitShare(ctx context.Context, userID snowflake.ID, currencyCode string, amount float64) error
	Get(ctx context.Context, userID snowflake.ID, currencyCode string) (*Wallet, error)
}
