package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adorncommerce/adorn-backend/api/middleware"
	"github.com/adorncommerce/adorn-backend/api/responses"
	"github.com/adorncommerce/adorn-backend/api/validators"
	cartsvc "github.com/adorncommerce/adorn-backend/internal/cart"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// CartFetch returns the caller's active cart, empty when none exists yet.
func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := svc.Get(r.Context(), middleware.SessionTokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(cart, svc.Subtotal(cart)))
	}
}

// CartAddItem adds a line to the session cart, snapshotting the catalog
// price at this moment.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.AddItem(
			r.Context(),
			middleware.SessionTokenFromContext(r.Context()),
			middleware.UserUUIDFromContext(r.Context()),
			cartsvc.AddItemInput{
				ProductID: payload.ProductID,
				VariantID: payload.VariantID,
				Quantity:  payload.Quantity,
			},
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(cart, svc.Subtotal(cart)))
	}
}

// CartUpdateItem sets the quantity of an existing line. Zero removes it.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid item id"))
			return
		}

		var payload cartUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.UpdateQuantity(r.Context(), middleware.SessionTokenFromContext(r.Context()), itemID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(cart, svc.Subtotal(cart)))
	}
}

// CartRemoveItem deletes a line from the session cart.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid item id"))
			return
		}

		cart, err := svc.RemoveItem(r.Context(), middleware.SessionTokenFromContext(r.Context()), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(cart, svc.Subtotal(cart)))
	}
}

// CartRefresh re-validates every line against live stock and reports what
// changed so the storefront can tell the buyer before checkout.
func CartRefresh(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Refresh(r.Context(), middleware.SessionTokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartRefreshResponse{
			Cart:            newCartResponse(result.Cart, svc.Subtotal(result.Cart)),
			RemovedItemIDs:  result.RemovedItemIDs,
			AdjustedItemIDs: result.AdjustedItemIDs,
			Changed:         result.Changed,
		})
	}
}

type cartAddRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

type cartUpdateRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

type cartResponse struct {
	ID        uuid.UUID          `json:"id"`
	Status    string             `json:"status"`
	Items     []cartItemResponse `json:"items"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type cartItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	ProductVariantID  *uuid.UUID      `json:"product_variant_id,omitempty"`
	Title             string          `json:"title"`
	VariantTitle      *string         `json:"variant_title,omitempty"`
	SKU               string          `json:"sku"`
	Price             decimal.Decimal `json:"price"`
	Quantity          int             `json:"quantity"`
	FeaturedImage     *string         `json:"featured_image,omitempty"`
	InventoryQuantity int             `json:"inventory_quantity"`
	TrackInventory    bool            `json:"track_inventory"`
}

type cartRefreshResponse struct {
	Cart            cartResponse `json:"cart"`
	RemovedItemIDs  []uuid.UUID  `json:"removed_item_ids"`
	AdjustedItemIDs []uuid.UUID  `json:"adjusted_item_ids"`
	Changed         bool         `json:"changed"`
}

func newCartResponse(cart *models.CartRecord, subtotal decimal.Decimal) cartResponse {
	if cart == nil {
		return cartResponse{Items: []cartItemResponse{}, Subtotal: decimal.Zero}
	}
	items := make([]cartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemResponse{
			ID:                item.ID,
			ProductID:         item.ProductID,
			ProductVariantID:  item.ProductVariantID,
			Title:             item.Title,
			VariantTitle:      item.VariantTitle,
			SKU:               item.SKU,
			Price:             item.Price,
			Quantity:          item.Quantity,
			FeaturedImage:     item.FeaturedImage,
			InventoryQuantity: item.InventoryQuantity,
			TrackInventory:    item.TrackInventory,
		})
	}
	return cartResponse{
		ID:        cart.ID,
		Status:    cart.Status,
		Items:     items,
		Subtotal:  subtotal,
		UpdatedAt: cart.UpdatedAt,
	}
}
