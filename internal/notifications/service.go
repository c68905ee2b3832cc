package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/pagination"
)

// Page is one page of notifications plus the cursor for the next.
type Page struct {
	Notifications []models.Notification
	NextCursor    string
	UnreadCount   int64
}

// Service manages the admin notification feed.
type Service interface {
	NotifyOrderEvent(ctx context.Context, kind enums.NotificationType, order *models.Order) error
	NotifyOrderEventTx(tx *gorm.DB, kind enums.NotificationType, order *models.Order) error
	List(ctx context.Context, params pagination.Params) (*Page, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the notifications service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) NotifyOrderEvent(ctx context.Context, kind enums.NotificationType, order *models.Order) error {
	row, err := buildNotification(kind, order)
	if err != nil {
		return err
	}
	return s.repo.Create(ctx, row)
}

func (s *service) NotifyOrderEventTx(tx *gorm.DB, kind enums.NotificationType, order *models.Order) error {
	row, err := buildNotification(kind, order)
	if err != nil {
		return err
	}
	return s.repo.CreateTx(tx, row)
}

func (s *service) List(ctx context.Context, params pagination.Params) (*Page, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx)
	if err != nil {
		return nil, err
	}
	return &Page{Notifications: rows, NextCursor: next, UnreadCount: unread}, nil
}

func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

func buildNotification(kind enums.NotificationType, order *models.Order) (*models.Notification, error) {
	if order == nil {
		return nil, errors.New(errors.CodeValidation, "order is required")
	}
	if !kind.IsValid() {
		return nil, errors.New(errors.CodeValidation, "unknown notification type")
	}

	row := models.Notification{
		ID:          uuid.New(),
		Type:        kind,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}

	switch kind {
	case enums.NotificationTypePaymentReceived:
		amount := order.Total
		row.Amount = &amount
		row.Message = fmt.Sprintf("Payment of %s %s received for order %s",
			order.Currency, order.Total.StringFixed(2), order.OrderNumber)
	case enums.NotificationTypeOrderShipped:
		row.Message = fmt.Sprintf("Order %s has been shipped", order.OrderNumber)
	case enums.NotificationTypeOrderDelivered:
		row.Message = fmt.Sprintf("Order %s has been delivered", order.OrderNumber)
	}

	return &row, nil
}
