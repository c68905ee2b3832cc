package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Promotion is a percentage discount rule with a validity window and a
// per-user usage cap.
type Promotion struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string          `gorm:"column:code;not null;uniqueIndex"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	UsageLimit      int             `gorm:"column:usage_limit;not null;default:1"`
	ValidFrom       time.Time       `gorm:"column:valid_from;not null"`
	ValidUntil      time.Time       `gorm:"column:valid_until;not null"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
