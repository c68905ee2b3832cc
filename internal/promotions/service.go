package promotions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/pricing"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// Validation is the outcome of a successful code check: the promotion plus
// the discount it yields on the given subtotal.
type Validation struct {
	Promotion      models.Promotion
	DiscountAmount decimal.Decimal
}

// Service validates promotion codes and records their usage after payment.
type Service interface {
	Validate(ctx context.Context, code string, userID *uuid.UUID, subtotal decimal.Decimal) (*Validation, error)
	RecordUsage(tx *gorm.DB, promotionID uuid.UUID, userID *uuid.UUID, orderID uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the promotions service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

// NormalizeCode maps raw buyer input onto the stored code form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate walks the rejection ladder in a fixed order so the buyer always
// sees the most specific failure: unknown code, inactive, outside window,
// usage cap, then empty cart.
func (s *service) Validate(ctx context.Context, code string, userID *uuid.UUID, subtotal decimal.Decimal) (*Validation, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, errors.New(errors.CodePromotion, "invalid promotion code")
	}

	promo, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if !promo.IsActive {
		return nil, errors.New(errors.CodePromotion, "promotion is not active")
	}

	now := s.now().UTC()
	if now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		return nil, errors.New(errors.CodePromotion, "promotion has expired")
	}

	if userID != nil {
		used, err := s.repo.CountUsages(ctx, promo.ID, *userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(promo.UsageLimit) {
			return nil, errors.New(errors.CodePromotion, "promotion usage limit reached")
		}
	}

	if !subtotal.IsPositive() {
		return nil, errors.New(errors.CodePromotion, "cart is empty")
	}

	return &Validation{
		Promotion:      *promo,
		DiscountAmount: pricing.DiscountFor(subtotal, promo.DiscountPercent),
	}, nil
}

// RecordUsage persists a usage slot inside the caller's transaction. Guests
// have no user id to count against, so nothing is recorded for them.
func (s *service) RecordUsage(tx *gorm.DB, promotionID uuid.UUID, userID *uuid.UUID, orderID uuid.UUID) error {
	if userID == nil {
		return nil
	}
	return s.repo.RecordUsageTx(tx, promotionID, *userID, orderID)
}
