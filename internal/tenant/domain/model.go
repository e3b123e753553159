// Package domain holds the tenant records: brands and their users. Both are
// cascade targets when a subscription changes hands.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Brand is one tenant. Sub-brands point at their parent via ParentCompanyID
// and inherit the parent's subscription.
type Brand struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	Name            string       `gorm:"type:text;not null"`
	Slug            string       `gorm:"type:text;uniqueIndex;not null"`
	ParentCompanyID snowflake.ID `gorm:"index"`
	SubscriptionID  snowflake.ID `gorm:"index"`
	DefaultCurrency string       `gorm:"type:text;not null;default:'NGN'"`
	Level           int          `gorm:"not null;default:0"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Brand) TableName() string { return "brands" }

// User belongs to a brand. Agent accounts point at their boss via BossID and
// inherit the boss's subscription.
type User struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	BrandID        snowflake.ID `gorm:"not null;index"`
	BossID         snowflake.ID `gorm:"index"`
	SubscriptionID snowflake.ID `gorm:"index"`
	Email          string       `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (User) TableName() string { return "users" }

var (
	ErrBrandNotFound = errors.New("brand_not_found")
	ErrUserNotFound  = errors.New("user_not_found")
)
