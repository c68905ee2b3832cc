package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a price snapshot taken when the buyer adds a line. Price is
// never re-read from the catalog after this point; stock figures are cached
// and refreshed by the stock validator.
type CartItem struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID            uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductVariantID  *uuid.UUID      `gorm:"column:product_variant_id;type:uuid"`
	Title             string          `gorm:"column:title;not null"`
	VariantTitle      *string         `gorm:"column:variant_title"`
	SKU               string          `gorm:"column:sku;not null"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity          int             `gorm:"column:quantity;not null"`
	FeaturedImage     *string         `gorm:"column:featured_image"`
	InventoryQuantity int             `gorm:"column:inventory_quantity;not null;default:0"`
	TrackInventory    bool            `gorm:"column:track_inventory;not null;default:true"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Key is the stable product+variant composite used to dedupe cart lines.
func (c CartItem) Key() string {
	if c.ProductVariantID != nil {
		return c.ProductID.String() + ":" + c.ProductVariantID.String()
	}
	return c.ProductID.String()
}
