package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Repository exposes the tenant reads/writes the settlement path needs.
// The cascade methods update a record and all of its dependents in one
// statement so repeated invocations converge on the same end state.
type Repository interface {
	FindUser(ctx context.Context, id snowflake.ID) (*User, error)
	FindBrand(ctx context.Context, id snowflake.ID) (*Brand, error)

	// CascadeUserSubscription sets subscriptionID on the user and on every
	// user whose boss_id equals userID.
	CascadeUserSubscription(ctx context.Context, userID, subscriptionID snowflake.ID) error
	// CascadeBrandSubscription sets subscriptionID on the brand and on every
	// brand whose parent_company_id equals brandID.
	CascadeBrandSubscription(ctx context.Context, brandID, subscriptionID snowflake.ID) error
}
