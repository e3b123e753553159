package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// GenerateRequest names the identifying triple plus expiry for one
// subscription. All four fields are required.
type GenerateRequest struct {
	UserID    snowflake.ID
	BrandID   snowflake.ID
	PackageID snowflake.ID
	ExpiresAt time.Time
}

// Service creates subscriptions and keeps dependent tenant records aligned
// with them.
type Service interface {
	// Generate validates the request, snapshots the plan's addons and
	// upserts the derived subscription row. No partial write occurs on
	// validation failure.
	Generate(ctx context.Context, req GenerateRequest) (*Subscription, error)
	// UpdateDependents propagates subscriptionID to the user (and agents
	// under them) and the brand (and sub-brands under it). Both cascades
	// must succeed; one failing makes the whole call fail so the caller
	// retries the propagation as a unit.
	UpdateDependents(ctx context.Context, userID, brandID, subscriptionID snowflake.ID) error
	// GetCurrent reads a subscription with lazy renewal: an expired row is
	// replaced by a fresh free-tier subscription before being returned, so
	// callers never observe an expired record.
	GetCurrent(ctx context.Context, id snowflake.ID) (*Subscription, error)
}
