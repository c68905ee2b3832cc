package promotions

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adorncommerce/adorn-backend/internal/repo"
	"github.com/adorncommerce/adorn-backend/pkg/db"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
)

// Repository reads promotions and records their usage.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*models.Promotion, error)
	CountUsages(ctx context.Context, promotionID, userID uuid.UUID) (int64, error)
	RecordUsageTx(tx *gorm.DB, promotionID, userID, orderID uuid.UUID) error
}

type repository struct {
	repo.Base
}

// NewRepository builds the promotions repository.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(gdb)}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.DB(ctx).Where("code = ?", code).Take(&promo).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.CodePromotion, "invalid promotion code")
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) CountUsages(ctx context.Context, promotionID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.PromotionUsage{}).
		Where("promotion_id = ? AND user_id = ?", promotionID, userID).
		Count(&count).Error
	return count, err
}

// RecordUsageTx inserts a usage row only while the per-user count is under
// the limit. The promotion row is locked first so two concurrent payments
// contending for the last slot serialize on it; a plain conditional insert
// is not enough under READ COMMITTED, where both statements would snapshot
// the same count. Replaying the same order is absorbed by the unique
// constraint and treated as already recorded.
func (r *repository) RecordUsageTx(tx *gorm.DB, promotionID, userID, orderID uuid.UUID) error {
	var promo models.Promotion
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id, usage_limit").
		Where("id = ?", promotionID).
		Take(&promo).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(errors.CodePromotion, "invalid promotion code")
	}
	if err != nil {
		return err
	}

	var count int64
	if err := tx.Model(&models.PromotionUsage{}).
		Where("promotion_id = ? AND user_id = ? AND order_id <> ?", promotionID, userID, orderID).
		Count(&count).Error; err != nil {
		return err
	}
	if count >= int64(promo.UsageLimit) {
		return errors.New(errors.CodePromotion, "promotion usage limit reached")
	}

	usage := models.PromotionUsage{
		ID:          uuid.New(),
		PromotionID: promotionID,
		UserID:      userID,
		OrderID:     orderID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.Create(&usage).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return err
	}
	return nil
}
