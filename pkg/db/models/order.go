package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adorncommerce/adorn-backend/pkg/enums"
)

// Order is the immutable record of a purchase attempt. Status and
// PaymentStatus are independent state machines sharing the row.
type Order struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string               `gorm:"column:order_number;not null;uniqueIndex"`
	UserID           *uuid.UUID           `gorm:"column:user_id;type:uuid;index"`
	Email            string               `gorm:"column:email;not null"`
	Status           enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus    enums.PaymentStatus  `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod    *enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	PaymentReference *string              `gorm:"column:payment_reference;uniqueIndex"`
	IsTestPayment    bool                 `gorm:"column:is_test_payment;not null;default:false"`
	Subtotal         decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxAmount        decimal.Decimal      `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	ShippingAmount   decimal.Decimal      `gorm:"column:shipping_amount;type:numeric(12,2);not null"`
	DiscountAmount   decimal.Decimal      `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	Total            decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	Currency         enums.Currency       `gorm:"column:currency;type:text;not null;default:'NGN'"`
	DeliveryMethod   enums.DeliveryMethod `gorm:"column:delivery_method;type:text;not null"`
	ShippingAddress  *OrderAddress        `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress   *OrderAddress        `gorm:"column:billing_address;type:jsonb;serializer:json"`
	PickupDate       *string              `gorm:"column:pickup_date"`
	PickupTime       *string              `gorm:"column:pickup_time"`
	CustomerPhone    *string              `gorm:"column:customer_phone"`
	DeliveryPhone    *string              `gorm:"column:delivery_phone"`
	TrackingNumber   *string              `gorm:"column:tracking_number"`
	PromotionID      *uuid.UUID           `gorm:"column:promotion_id;type:uuid"`
	Items            []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderAddress is the contact/address snapshot embedded on the order row.
type OrderAddress struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Company      *string `json:"company,omitempty"`
	AddressLine1 string  `json:"address_line_1"`
	AddressLine2 *string `json:"address_line_2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	PostalCode   string  `json:"postal_code"`
	Country      string  `json:"country"`
	Phone        *string `json:"phone,omitempty"`
}
