package addresses

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/repo"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
)

// Repository persists saved checkout addresses.
type Repository interface {
	Create(ctx context.Context, address *models.Address) error
	CreateTx(tx *gorm.DB, address *models.Address) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	HasShippingDuplicate(ctx context.Context, userID uuid.UUID, line1, city, postalCode string) (bool, error)
	HasShippingDuplicateTx(tx *gorm.DB, userID uuid.UUID, line1, city, postalCode string) (bool, error)
	HasContactDuplicate(ctx context.Context, userID uuid.UUID, firstName, lastName, phone string) (bool, error)
	HasContactDuplicateTx(tx *gorm.DB, userID uuid.UUID, firstName, lastName, phone string) (bool, error)
}

type repository struct {
	repo.Base
}

// NewRepository builds the addresses repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Create(ctx context.Context, address *models.Address) error {
	return r.DB(ctx).Create(address).Error
}

func (r *repository) CreateTx(tx *gorm.DB, address *models.Address) error {
	return tx.Create(address).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) HasShippingDuplicate(ctx context.Context, userID uuid.UUID, line1, city, postalCode string) (bool, error) {
	return hasShippingDuplicate(r.DB(ctx), userID, line1, city, postalCode)
}

func (r *repository) HasShippingDuplicateTx(tx *gorm.DB, userID uuid.UUID, line1, city, postalCode string) (bool, error) {
	return hasShippingDuplicate(tx, userID, line1, city, postalCode)
}

func (r *repository) HasContactDuplicate(ctx context.Context, userID uuid.UUID, firstName, lastName, phone string) (bool, error) {
	return hasContactDuplicate(r.DB(ctx), userID, firstName, lastName, phone)
}

func (r *repository) HasContactDuplicateTx(tx *gorm.DB, userID uuid.UUID, firstName, lastName, phone string) (bool, error) {
	return hasContactDuplicate(tx, userID, firstName, lastName, phone)
}

// Near-duplicate matching is case- and whitespace-insensitive; buyers retype
// the same address with different casing all the time.
func hasShippingDuplicate(db *gorm.DB, userID uuid.UUID, line1, city, postalCode string) (bool, error) {
	var count int64
	err := db.Model(&models.Address{}).
		Where("user_id = ?", userID).
		Where("LOWER(TRIM(address_line_1)) = ?", fold(line1)).
		Where("LOWER(TRIM(city)) = ?", fold(city)).
		Where("LOWER(TRIM(postal_code)) = ?", fold(postalCode)).
		Count(&count).Error
	return count > 0, err
}

func hasContactDuplicate(db *gorm.DB, userID uuid.UUID, firstName, lastName, phone string) (bool, error) {
	var count int64
	err := db.Model(&models.Address{}).
		Where("user_id = ?", userID).
		Where("LOWER(TRIM(first_name)) = ?", fold(firstName)).
		Where("LOWER(TRIM(last_name)) = ?", fold(lastName)).
		Where("COALESCE(TRIM(phone), '') = ?", strings.TrimSpace(phone)).
		Count(&count).Error
	return count > 0, err
}

func fold(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
