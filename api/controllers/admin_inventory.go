package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adorncommerce/adorn-backend/api/responses"
	"github.com/adorncommerce/adorn-backend/api/validators"
	invsvc "github.com/adorncommerce/adorn-backend/internal/inventory"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// InventoryFetch reads the current level of a product, variant, or misc item.
func InventoryFetch(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, id, err := inventoryTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		level, err := svc.Get(r.Context(), kind, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryResponse(level))
	}
}

// InventorySet overwrites the tracked quantity.
func InventorySet(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, id, err := inventoryTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventorySetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		level, err := svc.SetQuantity(r.Context(), kind, id, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryResponse(level))
	}
}

// InventoryQuickSale records an offline sale by decrementing stock.
func InventoryQuickSale(svc invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, id, err := inventoryTarget(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload inventoryQuickSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		level, err := svc.QuickSale(r.Context(), kind, id, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryResponse(level))
	}
}

func inventoryTarget(r *http.Request) (enums.ItemKind, uuid.UUID, error) {
	kind, err := enums.ParseItemKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "item kind")
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return "", uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item id")
	}
	return kind, id, nil
}

type inventorySetRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

type inventoryQuickSaleRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type inventoryResponse struct {
	Kind              string    `json:"kind"`
	ID                uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	SKU               string    `json:"sku"`
	InventoryQuantity int       `json:"inventory_quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	TrackInventory    bool      `json:"track_inventory"`
	Status            string    `json:"status"`
}

func newInventoryResponse(level *invsvc.Level) inventoryResponse {
	if level == nil {
		return inventoryResponse{}
	}
	return inventoryResponse{
		Kind:              string(level.Item.Kind),
		ID:                level.Item.ID,
		Title:             level.Item.Title,
		SKU:               level.Item.SKU,
		InventoryQuantity: level.Item.InventoryQuantity,
		LowStockThreshold: level.Item.LowStockThreshold,
		TrackInventory:    level.Item.TrackInventory,
		Status:            level.Status.String(),
	}
}
