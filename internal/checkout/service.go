package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/cart"
	"github.com/adorncommerce/adorn-backend/internal/orders"
	"github.com/adorncommerce/adorn-backend/internal/postpayment"
	"github.com/adorncommerce/adorn-backend/internal/promotions"
	"github.com/adorncommerce/adorn-backend/pkg/db"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/metrics"
)

// Input is the checkout form: contact, delivery choice, addresses, and the
// optional promotion code.
type Input struct {
	Email          string
	UserID         *uuid.UUID
	DeliveryMethod enums.DeliveryMethod

	FirstName     string
	LastName      string
	Phone         string
	DeliveryPhone *string

	ShippingAddress *models.OrderAddress
	BillingAddress  *models.OrderAddress
	PickupDate      *string
	PickupTime      *string

	PromotionCode string
	SaveAddress   bool
}

// OptInStore records the address opt-in flag for the post-payment step to
// pick up. *redis.Client satisfies it.
type OptInStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	IdempotencyKey(scope, id string) string
}

// Service runs the checkout pipeline: stock re-validation, promotion
// re-validation, then order creation. The order is fixed; a stale cart must
// never become an order, and a promotion must never be priced before the
// cart is known good.
type Service interface {
	Execute(ctx context.Context, sessionToken string, in Input) (*models.Order, error)
}

type service struct {
	client     *db.Client
	carts      cart.Service
	promotions promotions.Service
	orders     orders.Service
	flags      OptInStore
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
}

// NewService wires the checkout orchestrator.
func NewService(
	client *db.Client,
	carts cart.Service,
	promoSvc promotions.Service,
	orderSvc orders.Service,
	flags OptInStore,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service is required")
	}
	if promoSvc == nil {
		return nil, fmt.Errorf("promotions service is required")
	}
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service is required")
	}
	if flags == nil {
		return nil, fmt.Errorf("opt-in store is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		client:     client,
		carts:      carts,
		promotions: promoSvc,
		orders:     orderSvc,
		flags:      flags,
		metrics:    m,
		logg:       logg,
	}, nil
}

func (s *service) Execute(ctx context.Context, sessionToken string, in Input) (*models.Order, error) {
	start := time.Now()

	refresh, err := s.carts.Refresh(ctx, sessionToken)
	if err != nil {
		s.count(err)
		return nil, err
	}
	if refresh.Changed {
		s.metrics.IncCheckout("stock_conflict")
		return nil, errors.New(errors.CodeStockConflict, "cart contents changed during stock validation").
			WithDetails(map[string]any{
				"removed_item_ids":  refresh.RemovedItemIDs,
				"adjusted_item_ids": refresh.AdjustedItemIDs,
			})
	}

	validated := refresh.Cart
	if len(validated.Items) == 0 {
		s.metrics.IncCheckout("validation_error")
		return nil, errors.New(errors.CodeValidation, "cart is empty")
	}

	var grant *orders.PromotionGrant
	if code := promotions.NormalizeCode(in.PromotionCode); code != "" {
		validation, err := s.promotions.Validate(ctx, code, in.UserID, s.carts.Subtotal(validated))
		if err != nil {
			s.count(err)
			return nil, err
		}
		grant = &orders.PromotionGrant{
			PromotionID:    validation.Promotion.ID,
			DiscountAmount: validation.DiscountAmount,
		}
	}

	var order *models.Order
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.orders.CreateTx(tx, orders.CreateInput{
			Items:           validated.Items,
			Email:           in.Email,
			UserID:          in.UserID,
			DeliveryMethod:  in.DeliveryMethod,
			FirstName:       in.FirstName,
			LastName:        in.LastName,
			Phone:           in.Phone,
			DeliveryPhone:   in.DeliveryPhone,
			ShippingAddress: in.ShippingAddress,
			BillingAddress:  in.BillingAddress,
			PickupDate:      in.PickupDate,
			PickupTime:      in.PickupTime,
			Promotion:       grant,
		})
		if err != nil {
			return err
		}
		if err := s.carts.MarkConvertedTx(tx, validated.ID); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		s.count(err)
		return nil, err
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)

	if in.SaveAddress && in.UserID != nil {
		key := s.flags.IdempotencyKey(postpayment.AddressOptInScope, order.ID.String())
		if err := s.flags.Set(ctx, key, "1", postpayment.AddressOptInTTL); err != nil {
			s.logg.Warn(ctx, "address opt-in flag not stored: "+err.Error())
		}
	}

	s.metrics.IncCheckout("success")
	s.metrics.ObserveCheckout(in.DeliveryMethod.String(), time.Since(start))
	s.logg.Info(ctx, "checkout completed")
	return order, nil
}

func (s *service) count(err error) {
	typed := errors.As(err)
	if typed == nil {
		s.metrics.IncCheckout("error")
		return
	}
	switch typed.Code() {
	case errors.CodeValidation:
		s.metrics.IncCheckout("validation_error")
	case errors.CodePromotion:
		s.metrics.IncCheckout("promotion_rejected")
	case errors.CodeStockConflict:
		s.metrics.IncCheckout("stock_conflict")
	case errors.CodeNotFound:
		s.metrics.IncCheckout("validation_error")
	default:
		s.metrics.IncCheckout("error")
	}
}
