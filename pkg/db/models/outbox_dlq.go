package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/adorncommerce/adorn-backend/pkg/enums"
)

// OutboxDLQ stores webhook events that exhausted their delivery attempts.
type OutboxDLQ struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID      uuid.UUID             `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	EventType    enums.OutboxEventType `gorm:"column:event_type;type:text;not null"`
	Payload      json.RawMessage       `gorm:"column:payload;type:jsonb;not null"`
	AttemptCount int                   `gorm:"column:attempt_count;not null"`
	ErrorMessage *string               `gorm:"column:error_message"`
	FailedAt     time.Time             `gorm:"column:failed_at;autoCreateTime"`
}
