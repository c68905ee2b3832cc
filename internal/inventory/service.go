package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// Level is an inventory read with its derived classification.
type Level struct {
	Item   Adjustable
	Status enums.StockStatus
}

// Service exposes the admin inventory adjustments.
type Service interface {
	Get(ctx context.Context, kind enums.ItemKind, id uuid.UUID) (*Level, error)
	SetQuantity(ctx context.Context, kind enums.ItemKind, id uuid.UUID, quantity int) (*Level, error)
	QuickSale(ctx context.Context, kind enums.ItemKind, id uuid.UUID, quantity int) (*Level, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the inventory service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, kind enums.ItemKind, id uuid.UUID) (*Level, error) {
	item, err := s.repo.Find(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return levelOf(*item), nil
}

func (s *service) SetQuantity(ctx context.Context, kind enums.ItemKind, id uuid.UUID, quantity int) (*Level, error) {
	if quantity < 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be zero or greater")
	}

	if err := s.repo.SetQuantity(ctx, kind, id, quantity); err != nil {
		return nil, err
	}

	item, err := s.repo.Find(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"item_id": id.String(),
		"kind":    string(kind),
		"qty":     quantity,
	})
	s.logg.Info(ctx, "inventory quantity set")

	return levelOf(*item), nil
}

func (s *service) QuickSale(ctx context.Context, kind enums.ItemKind, id uuid.UUID, quantity int) (*Level, error) {
	if quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be greater than zero")
	}

	// Existence check up front so a bad id is a 404, not a silent no-op.
	before, err := s.repo.Find(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if before.TrackInventory {
		if err := s.repo.DecrementClamped(ctx, kind, id, quantity); err != nil {
			return nil, err
		}
	}

	item, err := s.repo.Find(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"item_id": id.String(),
		"kind":    string(kind),
		"sold":    quantity,
		"left":    item.InventoryQuantity,
	})
	s.logg.Info(ctx, "quick sale recorded")

	return levelOf(*item), nil
}

func levelOf(item Adjustable) *Level {
	return &Level{
		Item:   item,
		Status: StockStatus(item.InventoryQuantity, item.LowStockThreshold, item.TrackInventory),
	}
}
