package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adorncommerce/adorn-backend/api/middleware"
	"github.com/adorncommerce/adorn-backend/api/responses"
	"github.com/adorncommerce/adorn-backend/api/validators"
	cartsvc "github.com/adorncommerce/adorn-backend/internal/cart"
	promosvc "github.com/adorncommerce/adorn-backend/internal/promotions"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// ValidatePromotion checks a code against the caller's current cart
// subtotal. This is advisory; checkout re-validates before the order is
// created.
func ValidatePromotion(promos promosvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload promotionValidateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := carts.Get(r.Context(), middleware.SessionTokenFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(cart.Items) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodePromotion, "cart is empty"))
			return
		}

		result, err := promos.Validate(
			r.Context(),
			payload.Code,
			middleware.UserUUIDFromContext(r.Context()),
			carts.Subtotal(cart),
		)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, promotionValidateResponse{
			PromotionID:     result.Promotion.ID,
			Code:            result.Promotion.Code,
			DiscountPercent: result.Promotion.DiscountPercent,
			DiscountAmount:  result.DiscountAmount,
		})
	}
}

type promotionValidateRequest struct {
	Code string `json:"code" validate:"required"`
}

type promotionValidateResponse struct {
	PromotionID     uuid.UUID       `json:"promotion_id"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
}
