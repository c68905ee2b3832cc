package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CartStatusActive    = "active"
	CartStatusConverted = "converted"
	CartStatusCleared   = "cleared"
)

// CartRecord is the session-scoped cart aggregate. Guests are keyed by
// session token, signed-in buyers additionally by user id.
type CartRecord struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionToken string     `gorm:"column:session_token;not null;index"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid;index"`
	Status       string     `gorm:"column:status;not null;default:'active'"`
	Items        []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
