package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/adorncommerce/adorn-backend/pkg/config"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Policy carries the fixed business rates applied to every order. Rates
// live in configuration, not in calling code.
type Policy struct {
	Currency              enums.Currency
	TaxRatePercent        decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFlatFee       decimal.Decimal
}

// NewPolicy builds the pricing policy from validated configuration.
func NewPolicy(cfg config.PricingConfig) Policy {
	currency := enums.Currency(cfg.Currency)
	if currency == "" {
		currency = enums.CurrencyNGN
	}
	return Policy{
		Currency:              currency,
		TaxRatePercent:        cfg.TaxRate(),
		FreeShippingThreshold: cfg.FreeThreshold(),
		ShippingFlatFee:       cfg.FlatFee(),
	}
}

// Totals is the computed money breakdown for an order.
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// Compute derives tax, shipping, and the clamped grand total from the
// subtotal. Shipping is waived for pickup orders and for subtotals at or
// above the free-shipping threshold.
func (p Policy) Compute(subtotal, discount decimal.Decimal, method enums.DeliveryMethod) Totals {
	tax := subtotal.Mul(p.TaxRatePercent).Div(hundred).Round(2)

	shipping := decimal.Zero
	if method == enums.DeliveryMethodShipping && subtotal.LessThan(p.FreeShippingThreshold) {
		shipping = p.ShippingFlatFee
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}

	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		ShippingAmount: shipping,
		DiscountAmount: discount,
		Total:          total,
	}
}

// DiscountFor computes a percentage discount over the subtotal, rounded to
// two places.
func DiscountFor(subtotal, percent decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(percent).Div(hundred).Round(2)
}
