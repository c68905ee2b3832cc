package enums

// StockStatus classifies an inventory level. It is always derived, never
// stored.
type StockStatus string

const (
	StockStatusNotTracked StockStatus = "not_tracked"
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusInStock    StockStatus = "in_stock"
)

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}
