package models

import (
	"time"

	"github.com/google/uuid"
)

// PromotionUsage records one successful redemption. The (promotion, user,
// order) triple is unique; the per-user cap is enforced under a lock on
// the promotion row so concurrent payments cannot both claim the last slot.
type PromotionUsage struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromotionID uuid.UUID `gorm:"column:promotion_id;type:uuid;not null;uniqueIndex:ux_promotion_usages_promo_user_order"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_promotion_usages_promo_user_order"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_promotion_usages_promo_user_order"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
