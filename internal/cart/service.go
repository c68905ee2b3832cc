package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// AddItemInput identifies the sellable and quantity to add.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int
}

// RefreshResult reports what the stock validator changed.
type RefreshResult struct {
	Cart            *models.CartRecord
	RemovedItemIDs  []uuid.UUID
	AdjustedItemIDs []uuid.UUID
	Changed         bool
}

// Service is the session cart: snapshot lines in, validated lines out.
type Service interface {
	Get(ctx context.Context, sessionToken string) (*models.CartRecord, error)
	AddItem(ctx context.Context, sessionToken string, userID *uuid.UUID, in AddItemInput) (*models.CartRecord, error)
	UpdateQuantity(ctx context.Context, sessionToken string, itemID uuid.UUID, quantity int) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, sessionToken string, itemID uuid.UUID) (*models.CartRecord, error)
	Clear(ctx context.Context, sessionToken string) error
	Refresh(ctx context.Context, sessionToken string) (*RefreshResult, error)
	MarkConvertedTx(tx *gorm.DB, cartID uuid.UUID) error
	Subtotal(cart *models.CartRecord) decimal.Decimal
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the cart service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// snapshot is the catalog state captured for a cart line.
type snapshot struct {
	Title             string
	VariantTitle      *string
	SKU               string
	Price             decimal.Decimal
	FeaturedImage     *string
	InventoryQuantity int
	TrackInventory    bool
}

func (s *service) Get(ctx context.Context, sessionToken string) (*models.CartRecord, error) {
	if sessionToken == "" {
		return nil, errors.New(errors.CodeValidation, "session token is required")
	}
	cart, err := s.repo.FindActiveBySession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &models.CartRecord{SessionToken: sessionToken, Status: models.CartStatusActive}, nil
	}
	return cart, nil
}

func (s *service) AddItem(ctx context.Context, sessionToken string, userID *uuid.UUID, in AddItemInput) (*models.CartRecord, error) {
	if sessionToken == "" {
		return nil, errors.New(errors.CodeValidation, "session token is required")
	}
	if in.Quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be greater than zero")
	}

	snap, err := s.snapshotFor(ctx, in.ProductID, in.VariantID)
	if err != nil {
		return nil, err
	}
	if snap.TrackInventory && snap.InventoryQuantity <= 0 {
		return nil, errors.New(errors.CodeStockConflict, "item is out of stock")
	}

	cart, err := s.repo.FindActiveBySession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &models.CartRecord{
			ID:           uuid.New(),
			SessionToken: sessionToken,
			UserID:       userID,
			Status:       models.CartStatusActive,
		}
		if err := s.repo.Create(ctx, cart); err != nil {
			return nil, err
		}
	}

	line := findLine(cart, in.ProductID, in.VariantID)
	if line != nil {
		line.Quantity = clampQuantity(line.Quantity+in.Quantity, snap)
		line.InventoryQuantity = snap.InventoryQuantity
		line.TrackInventory = snap.TrackInventory
		if err := s.repo.UpdateItem(ctx, line); err != nil {
			return nil, err
		}
	} else {
		item := models.CartItem{
			ID:                uuid.New(),
			CartID:            cart.ID,
			ProductID:         in.ProductID,
			ProductVariantID:  in.VariantID,
			Title:             snap.Title,
			VariantTitle:      snap.VariantTitle,
			SKU:               snap.SKU,
			Price:             snap.Price,
			Quantity:          clampQuantity(in.Quantity, snap),
			FeaturedImage:     snap.FeaturedImage,
			InventoryQuantity: snap.InventoryQuantity,
			TrackInventory:    snap.TrackInventory,
		}
		if err := s.repo.CreateItem(ctx, &item); err != nil {
			return nil, err
		}
	}

	return s.reload(ctx, sessionToken)
}

func (s *service) UpdateQuantity(ctx context.Context, sessionToken string, itemID uuid.UUID, quantity int) (*models.CartRecord, error) {
	if quantity < 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be zero or greater")
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, sessionToken, itemID)
	}

	cart, err := s.requireCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	var line *models.CartItem
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			line = &cart.Items[i]
			break
		}
	}
	if line == nil {
		return nil, errors.New(errors.CodeNotFound, "cart item not found")
	}

	snap, err := s.snapshotFor(ctx, line.ProductID, line.ProductVariantID)
	if err != nil {
		return nil, err
	}

	line.Quantity = clampQuantity(quantity, snap)
	line.InventoryQuantity = snap.InventoryQuantity
	line.TrackInventory = snap.TrackInventory
	if err := s.repo.UpdateItem(ctx, line); err != nil {
		return nil, err
	}

	return s.reload(ctx, sessionToken)
}

func (s *service) RemoveItem(ctx context.Context, sessionToken string, itemID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.requireCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
		return nil, err
	}
	return s.reload(ctx, sessionToken)
}

func (s *service) Clear(ctx context.Context, sessionToken string) error {
	cart, err := s.repo.FindActiveBySession(ctx, sessionToken)
	if err != nil || cart == nil {
		return err
	}
	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, cart.ID, models.CartStatusCleared)
}

// Refresh is the stock validator: it re-reads authoritative inventory for
// every line, removes what is gone, clamps what shrank, and reports whether
// anything the buyer sees changed.
func (s *service) Refresh(ctx context.Context, sessionToken string) (*RefreshResult, error) {
	cart, err := s.requireCart(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	result := RefreshResult{
		RemovedItemIDs:  []uuid.UUID{},
		AdjustedItemIDs: []uuid.UUID{},
	}

	for i := range cart.Items {
		line := cart.Items[i]

		snap, err := s.snapshotFor(ctx, line.ProductID, line.ProductVariantID)
		if err != nil {
			if typed := errors.As(err); typed != nil && typed.Code() == errors.CodeNotFound {
				if derr := s.repo.DeleteItem(ctx, cart.ID, line.ID); derr != nil {
					return nil, derr
				}
				result.RemovedItemIDs = append(result.RemovedItemIDs, line.ID)
				continue
			}
			return nil, err
		}

		if snap.TrackInventory && snap.InventoryQuantity <= 0 {
			if derr := s.repo.DeleteItem(ctx, cart.ID, line.ID); derr != nil {
				return nil, derr
			}
			result.RemovedItemIDs = append(result.RemovedItemIDs, line.ID)
			continue
		}

		clamped := clampQuantity(line.Quantity, snap)
		if clamped != line.Quantity {
			result.AdjustedItemIDs = append(result.AdjustedItemIDs, line.ID)
		}
		if clamped != line.Quantity ||
			line.InventoryQuantity != snap.InventoryQuantity ||
			line.TrackInventory != snap.TrackInventory {
			line.Quantity = clamped
			line.InventoryQuantity = snap.InventoryQuantity
			line.TrackInventory = snap.TrackInventory
			if err := s.repo.UpdateItem(ctx, &line); err != nil {
				return nil, err
			}
		}
	}

	result.Changed = len(result.RemovedItemIDs) > 0 || len(result.AdjustedItemIDs) > 0

	refreshed, err := s.reload(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	result.Cart = refreshed

	if result.Changed {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"cart_id":  cart.ID.String(),
			"removed":  len(result.RemovedItemIDs),
			"adjusted": len(result.AdjustedItemIDs),
		})
		s.logg.Info(ctx, "cart adjusted by stock validation")
	}

	return &result, nil
}

func (s *service) MarkConvertedTx(tx *gorm.DB, cartID uuid.UUID) error {
	return s.repo.UpdateStatusTx(tx, cartID, models.CartStatusConverted)
}

// Subtotal sums the snapshot line totals.
func (s *service) Subtotal(cart *models.CartRecord) decimal.Decimal {
	total := decimal.Zero
	if cart == nil {
		return total
	}
	for _, item := range cart.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (s *service) requireCart(ctx context.Context, sessionToken string) (*models.CartRecord, error) {
	if sessionToken == "" {
		return nil, errors.New(errors.CodeValidation, "session token is required")
	}
	cart, err := s.repo.FindActiveBySession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, errors.New(errors.CodeNotFound, "cart not found")
	}
	return cart, nil
}

func (s *service) reload(ctx context.Context, sessionToken string) (*models.CartRecord, error) {
	cart, err := s.repo.FindActiveBySession(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, errors.New(errors.CodeNotFound, "cart not found")
	}
	return cart, nil
}

func (s *service) snapshotFor(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*snapshot, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, errors.New(errors.CodeNotFound, "product not found")
	}

	if variantID == nil {
		return &snapshot{
			Title:             product.Title,
			SKU:               product.SKU,
			Price:             product.Price,
			FeaturedImage:     product.FeaturedImage,
			InventoryQuantity: product.InventoryQuantity,
			TrackInventory:    product.TrackInventory,
		}, nil
	}

	variant, err := s.repo.FindVariant(ctx, *variantID)
	if err != nil {
		return nil, err
	}
	if variant.ProductID != productID || !variant.IsActive {
		return nil, errors.New(errors.CodeNotFound, "product variant not found")
	}

	variantTitle := variant.Title
	return &snapshot{
		Title:             product.Title,
		VariantTitle:      &variantTitle,
		SKU:               variant.SKU,
		Price:             variant.Price,
		FeaturedImage:     product.FeaturedImage,
		InventoryQuantity: variant.InventoryQuantity,
		TrackInventory:    variant.TrackInventory,
	}, nil
}

func findLine(cart *models.CartRecord, productID uuid.UUID, variantID *uuid.UUID) *models.CartItem {
	probe := models.CartItem{ProductID: productID, ProductVariantID: variantID}
	for i := range cart.Items {
		if cart.Items[i].Key() == probe.Key() {
			return &cart.Items[i]
		}
	}
	return nil
}

func clampQuantity(requested int, snap *snapshot) int {
	if !snap.TrackInventory {
		return requested
	}
	if requested > snap.InventoryQuantity {
		return snap.InventoryQuantity
	}
	return requested
}
