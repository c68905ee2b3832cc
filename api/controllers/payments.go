package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/adorncommerce/adorn-backend/api/middleware"
	"github.com/adorncommerce/adorn-backend/api/responses"
	"github.com/adorncommerce/adorn-backend/api/validators"
	paymentsvc "github.com/adorncommerce/adorn-backend/internal/payments"
	postpay "github.com/adorncommerce/adorn-backend/internal/postpayment"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/types"
)

// PaymentInitialize opens a hosted payment session for a pending order.
func PaymentInitialize(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentInitializeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentInitializeResponse{
			AuthorizationURL: result.AuthorizationURL,
			AccessCode:       result.AccessCode,
			Reference:        result.Reference,
			IsTest:           result.IsTest,
		})
	}
}

// PaymentVerify resolves a provider reference and runs the post-payment
// pipeline. The response always carries redirect parameters for the
// confirmation page, even when settlement was only partially persisted.
func PaymentVerify(svc paymentsvc.Service, settler postpay.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload paymentVerifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.Verify(r.Context(), payload.Reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmation, err := settler.Settle(r.Context(), outcome, middleware.UserUUIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentVerifyResponse{
			OrderNumber:      confirmation.OrderNumber,
			Email:            confirmation.Email,
			DeliveryMethod:   confirmation.DeliveryMethod.String(),
			PaymentReference: confirmation.PaymentReference,
			Pickup:           confirmation.Pickup,
			RedirectParams:   confirmation.QueryParams().Encode(),
		})
	}
}

type paymentInitializeRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

type paymentInitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Reference        string `json:"reference"`
	IsTest           bool   `json:"is_test"`
}

type paymentVerifyRequest struct {
	Reference string `json:"reference" validate:"required"`
}

type paymentVerifyResponse struct {
	OrderNumber      string              `json:"order_number"`
	Email            string              `json:"email"`
	DeliveryMethod   string              `json:"delivery_method"`
	PaymentReference string              `json:"payment_reference"`
	Pickup           *types.PickupWindow `json:"pickup,omitempty"`
	RedirectParams   string              `json:"redirect_params"`
}
