// Package domain holds plans and the subscriptions cut from them.
package domain

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Package is a purchasable plan. Addons describe per-feature availability
// and value; they are snapshotted onto subscriptions at creation time.
type Package struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	Name         string            `gorm:"type:text;not null"`
	Level        int               `gorm:"not null;default:0"`
	Price        float64           `gorm:"not null;default:0"`
	CurrencyCode string            `gorm:"type:text;not null;default:'NGN'"`
	DurationDays int               `gorm:"not null;default:30"`
	Addons       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Package) TableName() string { return "packages" }

// Subscription is the active plan held by a user under a brand. Its id is
// derived from (userID, brandID, packageID), so regenerating the same
// logical subscription upserts instead of duplicating.
type Subscription struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	UserID    snowflake.ID      `gorm:"not null;index"`
	BrandID   snowflake.ID      `gorm:"not null;index"`
	PackageID snowflake.ID      `gorm:"not null"`
	Level     int               `gorm:"not null;default:0"`
	Addons    datatypes.JSONMap `gorm:"type:jsonb"`
	ExpiresAt time.Time         `gorm:"not null;index"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Subscription) TableName() string { return "subscriptions" }

// Expired reports whether the subscription has lapsed as of now.
func (s Subscription) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// DeriveID hashes the identifying triple into a stable subscription id.
func DeriveID(userID, brandID, packageID snowflake.ID) snowflake.ID {
	h := fnv.New64a()
	fmt.Fprintf(h, "subscription:%d:%d:%d", userID.Int64(), brandID.Int64(), packageID.Int64())
	return snowflake.ID(int64(h.Sum64() & 0x7fffffffffffffff))
}

var (
	ErrMissingFields        = errors.New("missing required fields")
	ErrPackageNotFound      = errors.New("package_not_found")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrCascadeIncomplete    = errors.New("dependent cascade incomplete")
)
