package inventory

import (
	"testing"

	"github.com/adorncommerce/adorn-backend/pkg/enums"
)

func TestStockStatus(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		threshold int
		tracked   bool
		want      enums.StockStatus
	}{
		{"untracked ignores quantity", 0, 5, false, enums.StockStatusNotTracked},
		{"untracked ignores stock on hand", 100, 5, false, enums.StockStatusNotTracked},
		{"zero is out of stock", 0, 5, true, enums.StockStatusOutOfStock},
		{"negative is out of stock", -3, 5, true, enums.StockStatusOutOfStock},
		{"at threshold is low", 5, 5, true, enums.StockStatusLowStock},
		{"below threshold is low", 1, 5, true, enums.StockStatusLowStock},
		{"above threshold is in stock", 6, 5, true, enums.StockStatusInStock},
		{"zero threshold never reports low", 1, 0, true, enums.StockStatusInStock},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := StockStatus(tc.quantity, tc.threshold, tc.tracked)
			if got != tc.want {
				t.Fatalf("StockStatus(%d, %d, %v) = %s, want %s",
					tc.quantity, tc.threshold, tc.tracked, got, tc.want)
			}
		})
	}
}
