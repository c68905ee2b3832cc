package webhooks

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
)

// OrderSnapshot is the full order view POSTed to the configured webhook URL.
// The webhook_type discriminator tells the receiver which lifecycle event
// produced it; is_test_payment lets them filter sandbox traffic.
type OrderSnapshot struct {
	WebhookType      enums.OutboxEventType `json:"webhook_type"`
	IsTestPayment    bool                  `json:"is_test_payment"`
	OrderID          uuid.UUID             `json:"order_id"`
	OrderNumber      string                `json:"order_number"`
	Email            string                `json:"email"`
	CustomerPhone    *string               `json:"customer_phone,omitempty"`
	DeliveryPhone    *string               `json:"delivery_phone,omitempty"`
	Status           enums.OrderStatus     `json:"status"`
	PaymentStatus    enums.PaymentStatus   `json:"payment_status"`
	PaymentMethod    *enums.PaymentMethod  `json:"payment_method,omitempty"`
	PaymentReference *string               `json:"payment_reference,omitempty"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	TaxAmount        decimal.Decimal       `json:"tax_amount"`
	ShippingAmount   decimal.Decimal       `json:"shipping_amount"`
	DiscountAmount   decimal.Decimal       `json:"discount_amount"`
	Total            decimal.Decimal       `json:"total"`
	Currency         enums.Currency        `json:"currency"`
	DeliveryMethod   enums.DeliveryMethod  `json:"delivery_method"`
	ShippingAddress  *models.OrderAddress  `json:"shipping_address,omitempty"`
	BillingAddress   *models.OrderAddress  `json:"billing_address,omitempty"`
	PickupDate       *string               `json:"pickup_date,omitempty"`
	PickupTime       *string               `json:"pickup_time,omitempty"`
	TrackingNumber   *string               `json:"tracking_number,omitempty"`
	Items            []SnapshotItem        `json:"items"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// SnapshotItem mirrors an immutable order line.
type SnapshotItem struct {
	ProductID        uuid.UUID       `json:"product_id"`
	ProductVariantID *uuid.UUID      `json:"product_variant_id,omitempty"`
	Title            string          `json:"title"`
	VariantTitle     *string         `json:"variant_title,omitempty"`
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	Price            decimal.Decimal `json:"price"`
	Total            decimal.Decimal `json:"total"`
}

// BuildOrderSnapshot flattens an order into the outbound webhook shape.
func BuildOrderSnapshot(order *models.Order, webhookType enums.OutboxEventType) OrderSnapshot {
	items := make([]SnapshotItem, 0, len(order.Items))
	for _, line := range order.Items {
		items = append(items, SnapshotItem{
			ProductID:        line.ProductID,
			ProductVariantID: line.ProductVariantID,
			Title:            line.Title,
			VariantTitle:     line.VariantTitle,
			SKU:              line.SKU,
			Quantity:         line.Quantity,
			Price:            line.Price,
			Total:            line.Total,
		})
	}

	return OrderSnapshot{
		WebhookType:      webhookType,
		IsTestPayment:    order.IsTestPayment,
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		Email:            order.Email,
		CustomerPhone:    order.CustomerPhone,
		DeliveryPhone:    order.DeliveryPhone,
		Status:           order.Status,
		PaymentStatus:    order.PaymentStatus,
		PaymentMethod:    order.PaymentMethod,
		PaymentReference: order.PaymentReference,
		Subtotal:         order.Subtotal,
		TaxAmount:        order.TaxAmount,
		ShippingAmount:   order.ShippingAmount,
		DiscountAmount:   order.DiscountAmount,
		Total:            order.Total,
		Currency:         order.Currency,
		DeliveryMethod:   order.DeliveryMethod,
		ShippingAddress:  order.ShippingAddress,
		BillingAddress:   order.BillingAddress,
		PickupDate:       order.PickupDate,
		PickupTime:       order.PickupTime,
		TrackingNumber:   order.TrackingNumber,
		Items:            items,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}
