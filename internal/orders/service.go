package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/notifications"
	"github.com/adorncommerce/adorn-backend/internal/pricing"
	"github.com/adorncommerce/adorn-backend/internal/webhooks"
	"github.com/adorncommerce/adorn-backend/pkg/db"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/outbox"
)

// PromotionGrant is a validated promotion applied to a new order.
type PromotionGrant struct {
	PromotionID    uuid.UUID
	DiscountAmount decimal.Decimal
}

// CreateInput carries everything the order creator needs. Items come from a
// stock-validated cart; the promotion has already been through the
// validator.
type CreateInput struct {
	Items          []models.CartItem
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

	Promotion *PromotionGrant
}

// StatusChangeInput is an admin fulfillment transition.
type StatusChangeInput struct {
	OrderID        uuid.UUID
	NewStatus      enums.OrderStatus
	TrackingNumber *string
}

// Service creates orders and drives their fulfillment lifecycle.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*models.Order, error)
	CreateTx(tx *gorm.DB, in CreateInput) (*models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	GetByReference(ctx context.Context, reference string) (*models.Order, error)
	ChangeStatus(ctx context.Context, in StatusChangeInput) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, string, error)
}

type service struct {
	repo     Repository
	client   *db.Client
	policy   pricing.Policy
	notifier notifications.Service
	events   *outbox.Service
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the orders service.
func NewService(
	repo Repository,
	client *db.Client,
	policy pricing.Policy,
	notifier notifications.Service,
	events *outbox.Service,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
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
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:     repo,
		client:   client,
		policy:   policy,
		notifier: notifier,
		events:   events,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	var created *models.Order
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.CreateTx(tx, in)
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateTx validates, prices, and inserts the order header and its items
// inside the caller's transaction. Nothing is persisted when validation
// fails.
func (s *service) CreateTx(tx *gorm.DB, in CreateInput) (*models.Order, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		lineTotal := line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.OrderItem{
			ID:               uuid.New(),
			ProductID:        line.ProductID,
			ProductVariantID: line.ProductVariantID,
			Title:            line.Title,
			VariantTitle:     line.VariantTitle,
			SKU:              line.SKU,
			Quantity:         line.Quantity,
			Price:            line.Price,
			Total:            lineTotal,
		})
	}

	discount := decimal.Zero
	var promotionID *uuid.UUID
	if in.Promotion != nil {
		discount = in.Promotion.DiscountAmount
		id := in.Promotion.PromotionID
		promotionID = &id
	}
	totals := s.policy.Compute(subtotal, discount, in.DeliveryMethod)

	order := models.Order{
		ID:              uuid.New(),
		UserID:          in.UserID,
		Email:           in.Email,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		Subtotal:        totals.Subtotal,
		TaxAmount:       totals.TaxAmount,
		ShippingAmount:  totals.ShippingAmount,
		DiscountAmount:  totals.DiscountAmount,
		Total:           totals.Total,
		Currency:        s.policy.Currency,
		DeliveryMethod:  in.DeliveryMethod,
		ShippingAddress: contactAddress(in),
		BillingAddress:  in.BillingAddress,
		PickupDate:      in.PickupDate,
		PickupTime:      in.PickupTime,
		CustomerPhone:   &in.Phone,
		DeliveryPhone:   in.DeliveryPhone,
		PromotionID:     promotionID,
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	order.Items = items

	// Retry on the rare order-number collision; the unique index is the
	// source of truth.
	for attempt := 0; attempt < 5; attempt++ {
		number, err := NewOrderNumber(s.now())
		if err != nil {
			return nil, err
		}
		order.OrderNumber = number

		err = s.repo.CreateTx(tx, &order)
		if err == nil {
			return &order, nil
		}
		if !db.IsUniqueViolation(err, "order_number") {
			return nil, errors.Wrap(errors.CodeInternal, err, "creating order")
		}
	}
	return nil, errors.New(errors.CodeInternal, "could not allocate order number")
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.repo.FindByNumber(ctx, orderNumber)
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.Order, error) {
	return s.repo.FindByReference(ctx, reference)
}

// ChangeStatus applies an admin fulfillment transition and fans out the
// notification and webhook for shipped/delivered moves.
func (s *service) ChangeStatus(ctx context.Context, in StatusChangeInput) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}

	if !in.NewStatus.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown order status")
	}
	if !CanTransition(order.Status, in.NewStatus) {
		return nil, errors.New(errors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, in.NewStatus))
	}
	if in.NewStatus == enums.OrderStatusShipped &&
		order.DeliveryMethod == enums.DeliveryMethodShipping &&
		(in.TrackingNumber == nil || *in.TrackingNumber == "") {
		return nil, errors.New(errors.CodeValidation, "tracking number is required to mark shipped")
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ?", order.ID)
		updates := map[string]any{"status": in.NewStatus}
		if in.TrackingNumber != nil {
			updates["tracking_number"] = *in.TrackingNumber
		}
		if err := res.Updates(updates).Error; err != nil {
			return err
		}

		order.Status = in.NewStatus
		order.TrackingNumber = in.TrackingNumber

		event, notification, ok := fanoutFor(in.NewStatus)
		if !ok {
			return nil
		}
		if err := s.notifier.NotifyOrderEventTx(tx, notification, order); err != nil {
			return err
		}
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     event,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data:          webhooks.BuildOrderSnapshot(order, event),
			Version:       1,
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	s.logg.Info(s.logg.WithField(ctx, "status", in.NewStatus.String()), "order status changed")

	return s.repo.FindByID(ctx, in.OrderID)
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Order, string, error) {
	return s.repo.List(ctx, params)
}

func fanoutFor(status enums.OrderStatus) (enums.OutboxEventType, enums.NotificationType, bool) {
	switch status {
	case enums.OrderStatusShipped:
		return enums.EventOrderShipped, enums.NotificationTypeOrderShipped, true
	case enums.OrderStatusDelivered:
		return enums.EventOrderDelivered, enums.NotificationTypeOrderDelivered, true
	default:
		return "", "", false
	}
}

// contactAddress ensures the order always carries the buyer contact, even
// for pickup where there is no street address.
func contactAddress(in CreateInput) *models.OrderAddress {
	if in.ShippingAddress != nil {
		addr := *in.ShippingAddress
		if addr.FirstName == "" {
			addr.FirstName = in.FirstName
		}
		if addr.LastName == "" {
			addr.LastName = in.LastName
		}
		if addr.Phone == nil && in.Phone != "" {
			phone := in.Phone
			addr.Phone = &phone
		}
		return &addr
	}
	phone := in.Phone
	return &models.OrderAddress{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     &phone,
	}
}

func validateCreate(in CreateInput) error {
	if len(in.Items) == 0 {
		return errors.New(errors.CodeValidation, "cart is empty")
	}
	if !in.DeliveryMethod.IsValid() {
		return errors.New(errors.CodeValidation, "unknown delivery method")
	}

	var missing []string
	if in.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if in.LastName == "" {
		missing = append(missing, "last_name")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Phone == "" {
		missing = append(missing, "phone")
	}

	switch in.DeliveryMethod {
	case enums.DeliveryMethodShipping:
		if in.ShippingAddress == nil {
			missing = append(missing, "shipping_address")
		} else {
			if in.ShippingAddress.AddressLine1 == "" {
				missing = append(missing, "address_line_1")
			}
			if in.ShippingAddress.City == "" {
				missing = append(missing, "city")
			}
			if in.ShippingAddress.State == "" {
				missing = append(missing, "state")
			}
			if in.ShippingAddress.PostalCode == "" {
				missing = append(missing, "postal_code")
			}
		}
	case enums.DeliveryMethodPickup:
		if in.PickupDate == nil || *in.PickupDate == "" {
			missing = append(missing, "pickup_date")
		}
		if in.PickupTime == nil || *in.PickupTime == "" {
			missing = append(missing, "pickup_time")
		}
	}

	if len(missing) > 0 {
		message := "missing required fields"
		if in.DeliveryMethod == enums.DeliveryMethodShipping && shippingOnly(missing) {
			message = "incomplete shipping address"
		}
		return errors.New(errors.CodeValidation, message).WithDetails(missing)
	}

	for _, line := range in.Items {
		if line.Quantity <= 0 {
			return errors.New(errors.CodeValidation, "cart line quantity must be greater than zero")
		}
	}
	return nil
}

func shippingOnly(missing []string) bool {
	addressFields := map[string]bool{
		"shipping_address": true,
		"address_line_1":   true,
		"city":             true,
		"state":            true,
		"postal_code":      true,
	}
	for _, field := range missing {
		if !addressFields[field] {
			return false
		}
	}
	return true
}
