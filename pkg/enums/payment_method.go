package enums

// PaymentMethod records how an order was paid.
type PaymentMethod string

const (
	PaymentMethodPaystack PaymentMethod = "paystack"
	PaymentMethodTest     PaymentMethod = "test"
)

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}
