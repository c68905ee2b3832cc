package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a simple sellable. Products with variants carry their stock on
// the variant rows instead.
type Product struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title             string           `gorm:"column:title;not null"`
	SKU               string           `gorm:"column:sku;not null;uniqueIndex"`
	Price             decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	FeaturedImage     *string          `gorm:"column:featured_image"`
	InventoryQuantity int              `gorm:"column:inventory_quantity;not null;default:0"`
	LowStockThreshold int              `gorm:"column:low_stock_threshold;not null;default:5"`
	TrackInventory    bool             `gorm:"column:track_inventory;not null;default:true"`
	IsActive          bool             `gorm:"column:is_active;not null;default:true"`
	Variants          []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
