package inventory

import "github.com/adorncommerce/adorn-backend/pkg/enums"

// StockStatus derives the classification from the three inputs alone so it
// can be unit-tested without a database. It is never stored.
func StockStatus(quantity, threshold int, tracked bool) enums.StockStatus {
	if !tracked {
		return enums.StockStatusNotTracked
	}
	if quantity <= 0 {
		return enums.StockStatusOutOfStock
	}
	if quantity <= threshold {
		return enums.StockStatusLowStock
	}
	return enums.StockStatusInStock
}
