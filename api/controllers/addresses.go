package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/adorncommerce/adorn-backend/api/middleware"
	"github.com/adorncommerce/adorn-backend/api/responses"
	"github.com/adorncommerce/adorn-backend/api/validators"
	addrsvc "github.com/adorncommerce/adorn-backend/internal/addresses"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// AddressList returns the caller's saved addresses, default first.
func AddressList(svc addrsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		rows, err := svc.List(r.Context(), *userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]addressResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, newAddressResponse(row))
		}
		responses.WriteSuccess(w, out)
	}
}

// AddressCreate saves an address for checkout autofill.
func AddressCreate(svc addrsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserUUIDFromContext(r.Context())
		if userID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var payload addressCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressType := enums.AddressTypeShipping
		if payload.Type != "" {
			parsed, err := enums.ParseAddressType(payload.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "address type"))
				return
			}
			addressType = parsed
		}

		row, err := svc.Save(r.Context(), *userID, addrsvc.SaveInput{
			Type:         addressType,
			FirstName:    payload.FirstName,
			LastName:     payload.LastName,
			Company:      payload.Company,
			AddressLine1: payload.AddressLine1,
			AddressLine2: payload.AddressLine2,
			City:         payload.City,
			State:        payload.State,
			PostalCode:   payload.PostalCode,
			Country:      payload.Country,
			Phone:        payload.Phone,
			IsDefault:    payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newAddressResponse(*row))
	}
}

type addressCreateRequest struct {
	Type         string  `json:"type,omitempty"`
	FirstName    string  `json:"first_name" validate:"required"`
	LastName     string  `json:"last_name" validate:"required"`
	Company      *string `json:"company,omitempty"`
	AddressLine1 string  `json:"address_line_1" validate:"required"`
	AddressLine2 *string `json:"address_line_2,omitempty"`
	City         string  `json:"city" validate:"required"`
	State        string  `json:"state" validate:"required"`
	PostalCode   string  `json:"postal_code" validate:"required"`
	Country      string  `json:"country,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	IsDefault    bool    `json:"is_default,omitempty"`
}

type addressResponse struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Company      *string   `json:"company,omitempty"`
	AddressLine1 string    `json:"address_line_1"`
	AddressLine2 *string   `json:"address_line_2,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
	Phone        *string   `json:"phone,omitempty"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
}

func newAddressResponse(row models.Address) addressResponse {
	return addressResponse{
		ID:           row.ID,
		Type:         string(row.Type),
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Company:      row.Company,
		AddressLine1: row.AddressLine1,
		AddressLine2: row.AddressLine2,
		City:         row.City,
		State:        row.State,
		PostalCode:   row.PostalCode,
		Country:      row.Country,
		Phone:        row.Phone,
		IsDefault:    row.IsDefault,
		CreatedAt:    row.CreatedAt,
	}
}
