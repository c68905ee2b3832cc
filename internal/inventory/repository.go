package inventory

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/repo"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
)

// Adjustable is the kind-agnostic view of a sellable row. All three
// sellable tables share the same inventory columns, so adjustments go
// through this shape regardless of kind.
type Adjustable struct {
	Kind              enums.ItemKind
	ID                uuid.UUID
	Title             string
	SKU               string
	InventoryQuantity int
	LowStockThreshold int
	TrackInventory    bool
	IsActive          bool
}

var tableByKind = map[enums.ItemKind]string{
	enums.ItemKindProduct: "products",
	enums.ItemKindVariant: "product_variants",
	enums.ItemKindMisc:    "misc_items",
}

// Repository reads and mutates inventory columns across the sellable tables.
type Repository interface {
	Find(ctx context.Context, kind enums.ItemKind, id uuid.UUID) (*Adjustable, error)
	SetQuantity(ctx context.Context, kind enums.ItemKind, id uuid.UUID, quantity int) error
	DecrementClamped(ctx context.Context, kind enums.ItemKind, id uuid.UUID, quantity int) error
	DecrementClampedTx(tx *gorm.DB, kind enums.ItemKind, id uuid.UUID, quantity int) error
}

type repository struct {
	repo.Base
}

// NewRepository builds the inventory repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) Find(ctx context.Context, kind enums.ItemKind, id uuid.UUID) (*Adjustable, error) {
	table, ok := tableByKind[kind]
	if !ok {
		return nil, errors.New(errors.CodeValidation, "unknown item kind")
	}

	var row struct {
		ID                uuid.UUID
		Title             string
		SKU               string
		InventoryQuantity int
		LowStockThreshold int
		TrackInventory    bool
		IsActive          bool
	}

	err := r.DB(ctx).Table(table).
		Select("id, title, sku, inventory_quantity, low_stock_threshold, track_inventory, is_active").
		Where("id = ?", id).
		Take(&row).Error
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.CodeNotFound, "item not found")
	}
	if err != nil {
		return nil, err
	}

	return &Adjustable{
		Kind:              kind,
		ID:                row.ID,
		Title:             row.Title,
		SKU:               row.SKU,
		InventoryQuantity: row.InventoryQuantity,
		LowStockThreshold: row.LowStockThreshold,
		TrackInventory:    row.TrackInventory,
		IsActive:          row.IsActive,
	}, nil
}

func (r *repository) SetQuantity(ctx context.Context, kind enums.ItemKind, id uuid.UUID, quantity int) error {
	table, ok := tableByKind[kind]
	if !ok {
		return errors.New(errors.CodeValidation, "unknown item kind")
	}

	res := r.DB(ctx).Table(table).
		Where("id = ?", id).
		Update("inventory_quantity", quantity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New(errors.CodeNotFound, "item not found")
	}
	return nil
}

func (r *repository) DecrementClamped(ctx context.Context, kind enums.ItemKind, id uuid.UUID, quantity int) error {
	return decrementClamped(r.DB(ctx), kind, id, quantity)
}

func (r *repository) DecrementClampedTx(tx *gorm.DB, kind enums.ItemKind, id uuid.UUID, quantity int) error {
	return decrementClamped(tx, kind, id, quantity)
}

// decrementClamped subtracts in a single UPDATE so concurrent sales never
// interleave a read-modify-write. The CASE clamps at zero instead of going
// negative on oversells.
func decrementClamped(db *gorm.DB, kind enums.ItemKind, id uuid.UUID, quantity int) error {
	table, ok := tableByKind[kind]
	if !ok {
		return errors.New(errors.CodeValidation, "unknown item kind")
	}

	res := db.Exec(
		`UPDATE `+table+` SET inventory_quantity = CASE
			WHEN inventory_quantity >= ? THEN inventory_quantity - ?
			ELSE 0
		END, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND track_inventory`,
		quantity, quantity, id,
	)
	if res.Error != nil {
		return res.Error
	}
	return nil
}
