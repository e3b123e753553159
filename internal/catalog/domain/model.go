// Package domain holds the purchasable product catalog imported from the
// aggregator.
package domain

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Product is one plan row. Cost comes from the aggregator; sell price is
// cost times the configured margin for the service type. Identity is derived
// from (serviceType, productCode), so re-imports upsert in place.
type Product struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	BrandID      snowflake.ID `gorm:"index"`
	Type         string       `gorm:"type:text;not null;index"`
	Slug         string       `gorm:"type:text;index;not null"`
	Name         string       `gorm:"type:text;not null"`
	ProviderCode string       `gorm:"type:text;not null"`
	ProductCode  string       `gorm:"type:text;not null"`
	CostPrice    float64      `gorm:"not null"`
	SellPrice    float64      `gorm:"not null"`
	CurrencyCode string       `gorm:"type:text;not null"`
	Active       bool         `gorm:"not null;default:true"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }

// DeriveID hashes (serviceType, productCode) into a stable product id.
func DeriveID(serviceType, productCode string) snowflake.ID {
	h := fnv.New64a()
	fmt.Fprintf(h, "product:%s:%s", serviceType, productCode)
	return snowflake.ID(int64(h.Sum64() & 0x7fffffffffffffff))
}

var ErrEmptyCatalog = errors.New("empty_catalog")
