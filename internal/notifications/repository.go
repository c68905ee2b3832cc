package notifications

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/repo"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/pagination"
)

// Repository persists admin notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateTx(tx *gorm.DB, notification *models.Notification) error
	List(ctx context.Context, params pagination.Params) ([]models.Notification, string, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds the notifications repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	return r.DB(ctx).Create(notification).Error
}

func (r *repository) CreateTx(tx *gorm.DB, notification *models.Notification) error {
	return tx.Create(notification).Error
}

// List returns newest-first pages with an opaque cursor for the next page.
func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Notification, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.DB(ctx).Model(&models.Notification{}).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", errors.Wrap(errors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Notification
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

func (r *repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	var notification models.Notification
	err := r.DB(ctx).Where("id = ?", id).Take(&notification).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New(errors.CodeNotFound, "notification not found")
	}
	if err != nil {
		return err
	}
	if notification.ReadAt != nil {
		return nil
	}

	now := time.Now().UTC()
	return r.DB(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read_at", now).Error
}

func (r *repository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Notification{}).
		Where("read_at IS NULL").
		Count(&count).Error
	return count, err
}
