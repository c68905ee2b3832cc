package postpayment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/addresses"
	"github.com/adorncommerce/adorn-backend/internal/inventory"
	"github.com/adorncommerce/adorn-backend/internal/notifications"
	"github.com/adorncommerce/adorn-backend/internal/orders"
	"github.com/adorncommerce/adorn-backend/internal/payments"
	"github.com/adorncommerce/adorn-backend/internal/promotions"
	"github.com/adorncommerce/adorn-backend/internal/webhooks"
	"github.com/adorncommerce/adorn-backend/pkg/db"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/outbox"
	"github.com/adorncommerce/adorn-backend/pkg/redis"
)

const (
	// AddressOptInScope keys the redis flag checkout sets when the buyer
	// asked to save their address after payment.
	AddressOptInScope = "address_opt_in"
	// AddressOptInTTL bounds how long the opt-in survives an abandoned
	// payment session.
	AddressOptInTTL = 24 * time.Hour

	referenceGuardTTL = 24 * time.Hour
)

// Guard is the redis slice used for the exactly-once reference claim and
// the address opt-in flag. *redis.Client satisfies it.
type Guard interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	PaymentReferenceKey(reference string) string
}

// Service settles a verified payment: records paid state, then runs the
// independent side effects. It always produces a Confirmation for the
// redirect; side-effect failures are logged, never surfaced to the buyer.
type Service interface {
	Settle(ctx context.Context, outcome *payments.VerifyOutcome, userID *uuid.UUID) (*Confirmation, error)
}

type service struct {
	repo       orders.Repository
	client     *db.Client
	notifier   notifications.Service
	events     *outbox.Service
	addresses  addresses.Service
	promotions promotions.Service
	stock      inventory.Repository
	guard      Guard
	logg       *logger.Logger
}

// NewService wires the post-payment orchestrator.
func NewService(
	repo orders.Repository,
	client *db.Client,
	notifier notifications.Service,
	events *outbox.Service,
	addressSvc addresses.Service,
	promoSvc promotions.Service,
	stock inventory.Repository,
	guard Guard,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifications service is required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service is required")
	}
	if addressSvc == nil {
		return nil, fmt.Errorf("addresses service is required")
	}
	if promoSvc == nil {
		return nil, fmt.Errorf("promotions service is required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory repository is required")
	}
	if guard == nil {
		return nil, fmt.Errorf("reference guard is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:       repo,
		client:     client,
		notifier:   notifier,
		events:     events,
		addresses:  addressSvc,
		promotions: promoSvc,
		stock:      stock,
		guard:      guard,
		logg:       logg,
	}, nil
}

// Settle applies the outcome of a verification. Paid state is written
// first; the remaining steps run independently so one failure never blocks
// the others or the redirect. The money has already moved, so nothing past
// this point may fail the buyer.
func (s *service) Settle(ctx context.Context, outcome *payments.VerifyOutcome, userID *uuid.UUID) (*Confirmation, error) {
	if outcome == nil || outcome.Order == nil {
		return nil, errors.New(errors.CodeValidation, "verification outcome is required")
	}

	order := outcome.Order
	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	ctx = s.logg.WithPaymentReference(ctx, outcome.Reference)

	if outcome.AlreadyPaid {
		confirmation := NewConfirmation(order, outcome.Reference)
		return &confirmation, nil
	}

	if !outcome.Success {
		if err := s.markFailed(ctx, order.ID); err != nil {
			s.logg.Error(ctx, "marking payment failed", err)
		}
		confirmation := NewConfirmation(order, PaymentPendingValue)
		return &confirmation, nil
	}

	// Exactly-once claim per reference. The DB paid-state check in Verify
	// is the backstop when redis is unavailable.
	key := s.guard.PaymentReferenceKey(outcome.Reference)
	claimed, err := s.guard.SetNX(ctx, key, order.ID.String(), referenceGuardTTL)
	if err != nil {
		s.logg.Warn(ctx, "reference guard unavailable: "+err.Error())
	} else if !claimed {
		s.logg.Info(ctx, "reference already settled")
		confirmation := NewConfirmation(order, outcome.Reference)
		return &confirmation, nil
	}

	method := outcome.Method
	reference := outcome.Reference
	order.PaymentStatus = enums.PaymentStatusPaid
	order.PaymentMethod = &method
	order.PaymentReference = &reference
	order.IsTestPayment = outcome.IsTest

	paidPersisted := true
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.UpdatePaymentFieldsTx(tx, order.ID, orders.PaymentFields{
			PaymentStatus:    enums.PaymentStatusPaid,
			PaymentMethod:    &method,
			PaymentReference: &reference,
			IsTestPayment:    outcome.IsTest,
		})
	})
	if err != nil {
		// The order row stays recoverable by support tooling; the buyer
		// still gets their confirmation with payment marked pending.
		paidPersisted = false
		s.logg.Error(ctx, "persisting paid state", err)
	}

	var sideEffects error

	// Stock comes off the shelf before anyone is told about the sale, and
	// all lines move in one transaction.
	if err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range order.Items {
			kind := enums.ItemKindProduct
			id := line.ProductID
			if line.ProductVariantID != nil {
				kind = enums.ItemKindVariant
				id = *line.ProductVariantID
			}
			if err := s.stock.DecrementClampedTx(tx, kind, id, line.Quantity); err != nil {
				return fmt.Errorf("inventory %s: %w", line.SKU, err)
			}
		}
		return nil
	}); err != nil {
		sideEffects = multierr.Append(sideEffects, err)
	}

	if err := s.notifier.NotifyOrderEvent(ctx, enums.NotificationTypePaymentReceived, order); err != nil {
		sideEffects = multierr.Append(sideEffects, fmt.Errorf("notification: %w", err))
	}

	if err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSuccessful,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          webhooks.BuildOrderSnapshot(order, enums.EventPaymentSuccessful),
			Version:       1,
		})
	}); err != nil {
		sideEffects = multierr.Append(sideEffects, fmt.Errorf("webhook outbox: %w", err))
	}

	if userID != nil && s.addressOptedIn(ctx, order.ID) {
		if err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
			return s.addresses.SaveFromOrderTx(tx, *userID, order)
		}); err != nil {
			sideEffects = multierr.Append(sideEffects, fmt.Errorf("address save: %w", err))
		}
	}

	if order.PromotionID != nil && userID != nil {
		if err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
			return s.promotions.RecordUsage(tx, *order.PromotionID, userID, order.ID)
		}); err != nil {
			sideEffects = multierr.Append(sideEffects, fmt.Errorf("promotion usage: %w", err))
		}
	}

	if sideEffects != nil {
		s.logg.Warn(ctx, "post-payment side effects incomplete: "+sideEffects.Error())
	} else {
		s.logg.Info(ctx, "payment settled")
	}

	confirmationRef := reference
	if !paidPersisted {
		confirmationRef = PaymentPendingValue
	}
	confirmation := NewConfirmation(order, confirmationRef)
	return &confirmation, nil
}

func (s *service) markFailed(ctx context.Context, orderID uuid.UUID) error {
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.UpdatePaymentFieldsTx(tx, orderID, orders.PaymentFields{
			PaymentStatus: enums.PaymentStatusFailed,
		})
	})
}

func (s *service) addressOptedIn(ctx context.Context, orderID uuid.UUID) bool {
	value, err := s.guard.Get(ctx, s.guard.IdempotencyKey(AddressOptInScope, orderID.String()))
	if err != nil {
		if !redis.IsNil(err) {
			s.logg.Warn(ctx, "address opt-in lookup failed: "+err.Error())
		}
		return false
	}
	return value != ""
}
