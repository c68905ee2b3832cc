package controllers

import (
	"net/http"

	"github.com/adorncommerce/adorn-backend/api/middleware"
	"github.com/adorncommerce/adorn-backend/api/responses"
	"github.com/adorncommerce/adorn-backend/api/validators"
	checkoutsvc "github.com/adorncommerce/adorn-backend/internal/checkout"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// Checkout converts the session cart into a pending order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParseDeliveryMethod(payload.DeliveryMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "delivery method"))
			return
		}

		order, err := svc.Execute(r.Context(), middleware.SessionTokenFromContext(r.Context()), checkoutsvc.Input{
			Email:           payload.Email,
			UserID:          middleware.UserUUIDFromContext(r.Context()),
			DeliveryMethod:  method,
			FirstName:       payload.FirstName,
			LastName:        payload.LastName,
			Phone:           payload.Phone,
			DeliveryPhone:   payload.DeliveryPhone,
			ShippingAddress: payload.ShippingAddress.toModel(),
			BillingAddress:  payload.BillingAddress.toModel(),
			PickupDate:      payload.PickupDate,
			PickupTime:      payload.PickupTime,
			PromotionCode:   payload.PromotionCode,
			SaveAddress:     payload.SaveAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

type checkoutRequest struct {
	Email          string  `json:"email" validate:"required,email"`
	DeliveryMethod string  `json:"delivery_method" validate:"required,oneof=shipping pickup"`
	FirstName      string  `json:"first_name" validate:"required"`
	LastName       string  `json:"last_name" validate:"required"`
	Phone          string  `json:"phone" validate:"required"`
	DeliveryPhone  *string `json:"delivery_phone,omitempty"`

	ShippingAddress *addressPayload `json:"shipping_address,omitempty"`
	BillingAddress  *addressPayload `json:"billing_address,omitempty"`
	PickupDate      *string         `json:"pickup_date,omitempty"`
	PickupTime      *string         `json:"pickup_time,omitempty"`

	PromotionCode string `json:"promotion_code,omitempty"`
	SaveAddress   bool   `json:"save_address,omitempty"`
}

type addressPayload struct {
	FirstName    string  `json:"first_name" validate:"required"`
	LastName     string  `json:"last_name" validate:"required"`
	Company      *string `json:"company,omitempty"`
	AddressLine1 string  `json:"address_line_1" validate:"required"`
	AddressLine2 *string `json:"address_line_2,omitempty"`
	City         string  `json:"city" validate:"required"`
	State        string  `json:"state" validate:"required"`
	PostalCode   string  `json:"postal_code" validate:"required"`
	Country      string  `json:"country" validate:"required"`
	Phone        *string `json:"phone,omitempty"`
}

func (a *addressPayload) toModel() *models.OrderAddress {
	if a == nil {
		return nil
	}
	return &models.OrderAddress{
		FirstName:    a.FirstName,
		LastName:     a.LastName,
		Company:      a.Company,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		PostalCode:   a.PostalCode,
		Country:      a.Country,
		Phone:        a.Phone,
	}
}
