package postpayment

import (
	"encoding/json"
	"net/url"

	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/types"
)

// PaymentPendingValue is the placeholder reference used when confirmation
// must proceed even though the payment fields update failed; support staff
// reconcile these manually.
const PaymentPendingValue = "pending"

// Confirmation carries everything the storefront needs to render the
// order-confirmed view. It is always produced, whatever the side effects
// did.
type Confirmation struct {
	OrderNumber      string
	Email            string
	DeliveryMethod   enums.DeliveryMethod
	PaymentReference string
	Pickup           *types.PickupWindow
}

// NewConfirmation builds redirect parameters from the order row.
func NewConfirmation(order *models.Order, reference string) Confirmation {
	c := Confirmation{
		OrderNumber:      order.OrderNumber,
		Email:            order.Email,
		DeliveryMethod:   order.DeliveryMethod,
		PaymentReference: reference,
	}
	if c.PaymentReference == "" {
		c.PaymentReference = PaymentPendingValue
	}
	if order.DeliveryMethod == enums.DeliveryMethodPickup &&
		order.PickupDate != nil && order.PickupTime != nil {
		c.Pickup = &types.PickupWindow{Date: *order.PickupDate, Time: *order.PickupTime}
	}
	return c
}

// QueryParams encodes the confirmation for the redirect URL.
func (c Confirmation) QueryParams() url.Values {
	params := url.Values{}
	params.Set("order", c.OrderNumber)
	params.Set("email", c.Email)
	params.Set("delivery", c.DeliveryMethod.String())
	params.Set("payment", c.PaymentReference)
	if c.Pickup != nil {
		if encoded, err := json.Marshal(c.Pickup); err == nil {
			params.Set("pickup", string(encoded))
		}
	}
	return params
}
