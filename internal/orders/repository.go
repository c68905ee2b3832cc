package orders

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/repo"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/pagination"
)

// ListParams filters the admin order list.
type ListParams struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Pagination    pagination.Params
}

// PaymentFields is the post-payment update applied to an order row.
type PaymentFields struct {
	PaymentStatus    enums.PaymentStatus
	PaymentMethod    *enums.PaymentMethod
	PaymentReference *string
	IsTestPayment    bool
}

// Repository persists orders and their immutable line items.
type Repository interface {
	CreateTx(tx *gorm.DB, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	SetPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error
	UpdatePaymentFieldsTx(tx *gorm.DB, orderID uuid.UUID, fields PaymentFields) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, trackingNumber *string) error
	List(ctx context.Context, params ListParams) ([]models.Order, string, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds the orders repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) CreateTx(tx *gorm.DB, order *models.Order) error {
	return tx.Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *repository) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	return r.findOne(ctx, "payment_reference = ?", reference)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where(query, arg).
		First(&order).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) SetPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error {
	res := r.DB(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_reference", reference)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "order not found")
	}
	return nil
}

// UpdatePaymentFieldsTx writes the new payment state only when the current
// state may legally move there, so a late failed verification cannot
// clobber a paid order.
func (r *repository) UpdatePaymentFieldsTx(tx *gorm.DB, orderID uuid.UUID, fields PaymentFields) error {
	updates := map[string]any{
		"payment_status":  fields.PaymentStatus,
		"is_test_payment": fields.IsTestPayment,
	}
	if fields.PaymentMethod != nil {
		updates["payment_method"] = *fields.PaymentMethod
	}
	if fields.PaymentReference != nil {
		updates["payment_reference"] = *fields.PaymentReference
	}

	res := tx.Model(&models.Order{}).
		Where("id = ? AND payment_status IN ?", orderID, paymentSources(fields.PaymentStatus)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errors.New(errors.CodeNotFound, "order not found")
		}
		return errors.New(errors.CodeStateConflict, "payment status transition not allowed")
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, trackingNumber *string) error {
	updates := map[string]any{"status": status}
	if trackingNumber != nil {
		updates["tracking_number"] = *trackingNumber
	}

	res := r.DB(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "order not found")
	}
	return nil
}

// List returns newest-first pages for the admin console.
func (r *repository) List(ctx context.Context, params ListParams) ([]models.Order, string, error) {
	limit := pagination.NormalizeLimit(params.Pagination.Limit)

	query := r.DB(ctx).Model(&models.Order{}).
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Pagination.Limit))

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}

	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return nil, "", errors.Wrap(errors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}
