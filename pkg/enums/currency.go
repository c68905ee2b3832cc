package enums

// Currency is the ISO-4217 code orders are charged in.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
)

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}
