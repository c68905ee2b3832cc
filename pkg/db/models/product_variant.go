package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductVariant carries per-variant pricing and stock for products sold in
// multiple sizes, colors, or materials.
type ProductVariant struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Title             string          `gorm:"column:title;not null"`
	SKU               string          `gorm:"column:sku;not null;uniqueIndex"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Size              *string         `gorm:"column:size"`
	Color             *string         `gorm:"column:color"`
	Material          *string         `gorm:"column:material"`
	InventoryQuantity int             `gorm:"column:inventory_quantity;not null;default:0"`
	LowStockThreshold int             `gorm:"column:low_stock_threshold;not null;default:5"`
	TrackInventory    bool            `gorm:"column:track_inventory;not null;default:true"`
	IsActive          bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
