package inventory

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/pkg/enums"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	for _, table := range []string{"products", "product_variants", "misc_items"} {
		ddl := `CREATE TABLE IF NOT EXISTS ` + table + ` (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  sku TEXT NOT NULL,
  price TEXT NOT NULL DEFAULT '0',
  inventory_quantity INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 5,
  track_inventory INTEGER NOT NULL DEFAULT 1,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create %s: %v", table, err)
		}
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, qty, threshold int, tracked bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := db.Exec(
		`INSERT INTO products (id, title, sku, inventory_quantity, low_stock_threshold, track_inventory) VALUES (?, ?, ?, ?, ?, ?)`,
		id, "Aso Oke Throw", "AOT-"+id.String()[:8], qty, threshold, tracked,
	).Error
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestRepositoryFind(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	r := NewRepository(db)
	ctx := context.Background()

	id := seedProduct(t, db, 7, 5, true)

	item, err := r.Find(ctx, enums.ItemKindProduct, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if item.InventoryQuantity != 7 || !item.TrackInventory {
		t.Fatalf("unexpected item: %+v", item)
	}

	_, err = r.Find(ctx, enums.ItemKindProduct, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDecrementClamped(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	r := NewRepository(db)
	ctx := context.Background()

	id := seedProduct(t, db, 3, 5, true)

	if err := r.DecrementClamped(ctx, enums.ItemKindProduct, id, 2); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	item, err := r.Find(ctx, enums.ItemKindProduct, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if item.InventoryQuantity != 1 {
		t.Fatalf("quantity = %d, want 1", item.InventoryQuantity)
	}

	// Oversell clamps at zero rather than going negative.
	if err := r.DecrementClamped(ctx, enums.ItemKindProduct, id, 10); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	item, err = r.Find(ctx, enums.ItemKindProduct, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if item.InventoryQuantity != 0 {
		t.Fatalf("quantity = %d, want 0", item.InventoryQuantity)
	}
}

func TestDecrementSkipsUntracked(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	r := NewRepository(db)
	ctx := context.Background()

	id := seedProduct(t, db, 9, 5, false)

	if err := r.DecrementClamped(ctx, enums.ItemKindProduct, id, 4); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	item, err := r.Find(ctx, enums.ItemKindProduct, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if item.InventoryQuantity != 9 {
		t.Fatalf("quantity = %d, want untouched 9", item.InventoryQuantity)
	}
}

func TestServiceQuickSale(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	id := seedProduct(t, db, 6, 5, true)

	level, err := svc.QuickSale(ctx, enums.ItemKindProduct, id, 2)
	if err != nil {
		t.Fatalf("quick sale: %v", err)
	}
	if level.Item.InventoryQuantity != 4 {
		t.Fatalf("quantity = %d, want 4", level.Item.InventoryQuantity)
	}
	if level.Status != enums.StockStatusLowStock {
		t.Fatalf("status = %s, want low_stock", level.Status)
	}

	if _, err := svc.QuickSale(ctx, enums.ItemKindProduct, id, 0); err == nil {
		t.Fatal("expected validation error for zero quantity")
	}
}

func TestServiceSetQuantity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db), testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	id := seedProduct(t, db, 0, 5, true)

	level, err := svc.SetQuantity(ctx, enums.ItemKindProduct, id, 20)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if level.Item.InventoryQuantity != 20 || level.Status != enums.StockStatusInStock {
		t.Fatalf("unexpected level: %+v", level)
	}

	if _, err := svc.SetQuantity(ctx, enums.ItemKindProduct, id, -1); err == nil {
		t.Fatal("expected validation error for negative quantity")
	}

	if _, err := svc.SetQuantity(ctx, enums.ItemKindProduct, uuid.New(), 5); err == nil {
		t.Fatal("expected not found for unknown id")
	}
}
