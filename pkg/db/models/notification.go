package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adorncommerce/adorn-backend/pkg/enums"
)

// Notification stores in-app notification payloads for the admin console.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Type        enums.NotificationType `gorm:"type:text;not null"`
	OrderID     uuid.UUID              `gorm:"type:uuid;not null"`
	OrderNumber string                 `gorm:"type:text;not null"`
	Amount      *decimal.Decimal       `gorm:"type:numeric(12,2)"`
	Message     string                 `gorm:"type:text;not null"`
	ReadAt      *time.Time             `gorm:"type:timestamptz"`
	CreatedAt   time.Time              `gorm:"type:timestamptz;default:now()"`
}
