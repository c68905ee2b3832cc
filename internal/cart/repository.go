package cart

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/repo"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
)

// Repository persists cart aggregates and reads the catalog rows needed to
// snapshot a line at add time.
type Repository interface {
	FindActiveBySession(ctx context.Context, sessionToken string) (*models.CartRecord, error)
	Create(ctx context.Context, cart *models.CartRecord) error
	UpdateStatus(ctx context.Context, cartID uuid.UUID, status string) error
	UpdateStatusTx(tx *gorm.DB, cartID uuid.UUID, status string) error

	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error

	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds the cart repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) FindActiveBySession(ctx context.Context, sessionToken string) (*models.CartRecord, error) {
	var cart models.CartRecord
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("session_token = ? AND status = ?", sessionToken, models.CartStatusActive).
		Order("created_at DESC").
		First(&cart).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) Create(ctx context.Context, cart *models.CartRecord) error {
	return r.DB(ctx).Create(cart).Error
}

func (r *repository) UpdateStatus(ctx context.Context, cartID uuid.UUID, status string) error {
	return r.updateStatus(r.DB(ctx), cartID, status)
}

func (r *repository) UpdateStatusTx(tx *gorm.DB, cartID uuid.UUID, status string) error {
	return r.updateStatus(tx, cartID, status)
}

func (r *repository) updateStatus(db *gorm.DB, cartID uuid.UUID, status string) error {
	res := db.Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "cart not found")
	}
	return nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.DB(ctx).Create(item).Error
}

func (r *repository) UpdateItem(ctx context.Context, item *models.CartItem) error {
	return r.DB(ctx).Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"quantity":           item.Quantity,
			"inventory_quantity": item.InventoryQuantity,
			"track_inventory":    item.TrackInventory,
		}).Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	res := r.DB(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (r *repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.DB(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

func (r *repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).Where("id = ?", id).Take(&product).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.DB(ctx).Where("id = ?", id).Take(&variant).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.CodeNotFound, "product variant not found")
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}
