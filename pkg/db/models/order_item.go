package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem captures the snapshot of each line within an order. Rows are
// created atomically with the order header and never mutated afterwards.
type OrderItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductVariantID *uuid.UUID      `gorm:"column:product_variant_id;type:uuid"`
	Title            string          `gorm:"column:title;not null"`
	VariantTitle     *string         `gorm:"column:variant_title"`
	SKU              string          `gorm:"column:sku;not null"`
	Quantity         int             `gorm:"column:quantity;not null"`
	Price            decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Total            decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	Size             *string         `gorm:"column:size"`
	Color            *string         `gorm:"column:color"`
	Material         *string         `gorm:"column:material"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
