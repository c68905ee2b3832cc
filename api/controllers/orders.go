package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adorncommerce/adorn-backend/api/middleware"
	"github.com/adorncommerce/adorn-backend/api/responses"
	ordersvc "github.com/adorncommerce/adorn-backend/internal/orders"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

// OrderFetch serves the confirmation view by order number. Guest orders are
// addressable by number alone; orders tied to an account are only visible to
// that account or an admin.
func OrderFetch(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		order, err := svc.GetByNumber(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if order.UserID != nil && middleware.RoleFromContext(r.Context()) != "admin" {
			caller := middleware.UserUUIDFromContext(r.Context())
			if caller == nil || *caller != *order.UserID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
				return
			}
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type orderResponse struct {
	ID               uuid.UUID            `json:"id"`
	OrderNumber      string               `json:"order_number"`
	Email            string               `json:"email"`
	Status           string               `json:"status"`
	PaymentStatus    string               `json:"payment_status"`
	PaymentReference *string              `json:"payment_reference,omitempty"`
	Subtotal         decimal.Decimal      `json:"subtotal"`
	TaxAmount        decimal.Decimal      `json:"tax_amount"`
	ShippingAmount   decimal.Decimal      `json:"shipping_amount"`
	DiscountAmount   decimal.Decimal      `json:"discount_amount"`
	Total            decimal.Decimal      `json:"total"`
	Currency         string               `json:"currency"`
	DeliveryMethod   string               `json:"delivery_method"`
	ShippingAddress  *models.OrderAddress `json:"shipping_address,omitempty"`
	BillingAddress   *models.OrderAddress `json:"billing_address,omitempty"`
	PickupDate       *string              `json:"pickup_date,omitempty"`
	PickupTime       *string              `json:"pickup_time,omitempty"`
	CustomerPhone    *string              `json:"customer_phone,omitempty"`
	DeliveryPhone    *string              `json:"delivery_phone,omitempty"`
	TrackingNumber   *string              `json:"tracking_number,omitempty"`
	Items            []orderItemResponse  `json:"items"`
	CreatedAt        time.Time            `json:"created_at"`
}

type orderItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductVariantID *uuid.UUID      `json:"product_variant_id,omitempty"`
	Title            string          `json:"title"`
	VariantTitle     *string         `json:"variant_title,omitempty"`
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	Total            decimal.Decimal `json:"total"`
	Size             *string         `json:"size,omitempty"`
	Color            *string         `json:"color,omitempty"`
	Material         *string         `json:"material,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{Items: []orderItemResponse{}}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:               item.ID,
			ProductID:        item.ProductID,
			ProductVariantID: item.ProductVariantID,
			Title:            item.Title,
			VariantTitle:     item.VariantTitle,
			SKU:              item.SKU,
			Quantity:         item.Quantity,
			Price:            item.Price,
			Total:            item.Total,
			Size:             item.Size,
			Color:            item.Color,
			Material:         item.Material,
		})
	}
	return orderResponse{
		ID:               order.ID,
		OrderNumber:      order.OrderNumber,
		Email:            order.Email,
		Status:           order.Status.String(),
		PaymentStatus:    order.PaymentStatus.String(),
		PaymentReference: order.PaymentReference,
		Subtotal:         order.Subtotal,
		TaxAmount:        order.TaxAmount,
		ShippingAmount:   order.ShippingAmount,
		DiscountAmount:   order.DiscountAmount,
		Total:            order.Total,
		Currency:         order.Currency.String(),
		DeliveryMethod:   order.DeliveryMethod.String(),
		ShippingAddress:  order.ShippingAddress,
		BillingAddress:   order.BillingAddress,
		PickupDate:       order.PickupDate,
		PickupTime:       order.PickupTime,
		CustomerPhone:    order.CustomerPhone,
		DeliveryPhone:    order.DeliveryPhone,
		TrackingNumber:   order.TrackingNumber,
		Items:            items,
		CreatedAt:        order.CreatedAt,
	}
}
