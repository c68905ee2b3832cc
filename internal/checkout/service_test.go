package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/cart"
	"github.com/adorncommerce/adorn-backend/internal/notifications"
	"github.com/adorncommerce/adorn-backend/internal/orders"
	"github.com/adorncommerce/adorn-backend/internal/postpayment"
	"github.com/adorncommerce/adorn-backend/internal/pricing"
	"github.com/adorncommerce/adorn-backend/internal/promotions"
	"github.com/adorncommerce/adorn-backend/pkg/db"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/outbox"
)

type fakeOptInStore struct {
	values map[string]string
}

func newFakeOptInStore() *fakeOptInStore {
	return &fakeOptInStore{values: map[string]string{}}
}

func (s *fakeOptInStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.values[key] = value.(string)
	return nil
}

func (s *fakeOptInStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	ddl := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  sku TEXT NOT NULL,
  price TEXT NOT NULL,
  featured_image TEXT,
  inventory_quantity INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 5,
  track_inventory INTEGER NOT NULL DEFAULT 1,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  title TEXT NOT NULL,
  sku TEXT NOT NULL,
  price TEXT NOT NULL,
  size TEXT,
  color TEXT,
  material TEXT,
  inventory_quantity INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 5,
  track_inventory INTEGER NOT NULL DEFAULT 1,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_records (
  id TEXT PRIMARY KEY,
  session_token TEXT NOT NULL,
  user_id TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_variant_id TEXT,
  title TEXT NOT NULL,
  variant_title TEXT,
  sku TEXT NOT NULL,
  price TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  featured_image TEXT,
  inventory_quantity INTEGER NOT NULL DEFAULT 0,
  track_inventory INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  user_id TEXT,
  email TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT,
  payment_reference TEXT UNIQUE,
  is_test_payment INTEGER NOT NULL DEFAULT 0,
  subtotal TEXT NOT NULL,
  tax_amount TEXT NOT NULL,
  shipping_amount TEXT NOT NULL,
  discount_amount TEXT NOT NULL,
  total TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'NGN',
  delivery_method TEXT NOT NULL,
  shipping_address TEXT,
  billing_address TEXT,
  pickup_date TEXT,
  pickup_time TEXT,
  customer_phone TEXT,
  delivery_phone TEXT,
  tracking_number TEXT,
  promotion_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  product_variant_id TEXT,
  title TEXT NOT NULL,
  variant_title TEXT,
  sku TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price TEXT NOT NULL,
  total TEXT NOT NULL,
  size TEXT,
  color TEXT,
  material TEXT,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  order_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  amount TEXT,
  message TEXT NOT NULL,
  read_at DATETIME,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`, `
CREATE TABLE IF NOT EXISTS promotions (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_percent TEXT NOT NULL,
  usage_limit INTEGER NOT NULL DEFAULT 1,
  valid_from DATETIME NOT NULL,
  valid_until DATETIME NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS promotion_usages (
  id TEXT PRIMARY KEY,
  promotion_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  created_at DATETIME,
  CONSTRAINT ux_promotion_usages_promo_user_order UNIQUE (promotion_id, user_id, order_id)
);`}
	for _, stmt := range ddl {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

type harness struct {
	conn    *gorm.DB
	carts   cart.Service
	svc     Service
	optIn   *fakeOptInStore
	session string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	conn := newTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	carts, err := cart.NewService(cart.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	promoSvc, err := promotions.NewService(promotions.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("promotions service: %v", err)
	}
	notifier, err := notifications.NewService(notifications.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("notifications service: %v", err)
	}
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	policy := pricing.Policy{
		Currency:              enums.CurrencyNGN,
		TaxRatePercent:        decimal.RequireFromString("7.5"),
		FreeShippingThreshold: decimal.NewFromInt(50000),
		ShippingFlatFee:       decimal.NewFromInt(2500),
	}
	orderSvc, err := orders.NewService(orders.NewRepository(conn), db.NewFromConn(conn), policy, notifier, events, logg)
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}

	optIn := newFakeOptInStore()
	svc, err := NewService(db.NewFromConn(conn), carts, promoSvc, orderSvc, optIn, nil, logg)
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}

	return &harness{
		conn:    conn,
		carts:   carts,
		svc:     svc,
		optIn:   optIn,
		session: "sess-" + uuid.NewString(),
	}
}

func (h *harness) seedProduct(t *testing.T, price int64, quantity int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := h.conn.Exec(
		`INSERT INTO products (id, title, sku, price, inventory_quantity, track_inventory, is_active)
		 VALUES (?, 'Adire Tote', ?, ?, ?, 1, 1)`,
		id, "SKU-"+id.String()[:8], decimal.NewFromInt(price).String(), quantity,
	).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func (h *harness) addToCart(t *testing.T, productID uuid.UUID, quantity int) {
	t.Helper()
	if _, err := h.carts.AddItem(context.Background(), h.session, nil, cart.AddItemInput{
		ProductID: productID,
		Quantity:  quantity,
	}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
}

func pickupCheckout() Input {
	date := "2026-09-04"
	slot := "11:00"
	return Input{
		Email:          "buyer@example.com",
		DeliveryMethod: enums.DeliveryMethodPickup,
		FirstName:      "Chiamaka",
		LastName:       "Obi",
		Phone:          "+2348012345678",
		PickupDate:     &date,
		PickupTime:     &slot,
	}
}

func TestExecuteCreatesOrderAndConvertsCart(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	productID := h.seedProduct(t, 20000, 10)
	h.addToCart(t, productID, 2)

	order, err := h.svc.Execute(context.Background(), h.session, pickupCheckout())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !order.Subtotal.Equal(decimal.NewFromInt(40000)) {
		t.Fatalf("subtotal = %s, want 40000", order.Subtotal)
	}
	if !order.Total.Equal(decimal.NewFromInt(43000)) {
		t.Fatalf("total = %s, want 43000", order.Total)
	}

	// The cart is spent; the session starts fresh.
	var status string
	if err := h.conn.Raw("SELECT status FROM cart_records WHERE session_token = ?", h.session).Scan(&status).Error; err != nil {
		t.Fatalf("cart status: %v", err)
	}
	if status != string(models.CartStatusConverted) {
		t.Fatalf("cart status = %q, want converted", status)
	}
}

func TestExecuteRejectsStaleCart(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	productID := h.seedProduct(t, 20000, 5)
	h.addToCart(t, productID, 5)

	// Inventory drains between add-to-cart and checkout.
	if err := h.conn.Exec("UPDATE products SET inventory_quantity = 2 WHERE id = ?", productID).Error; err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	_, err := h.svc.Execute(context.Background(), h.session, pickupCheckout())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStockConflict {
		t.Fatalf("expected stock conflict, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("details = %v", typed.Details())
	}
	adjusted, ok := details["adjusted_item_ids"].([]uuid.UUID)
	if !ok || len(adjusted) != 1 {
		t.Fatalf("adjusted = %v, want one line", details["adjusted_item_ids"])
	}

	// No order was created.
	var count int64
	if err := h.conn.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("orders = %d, want 0", count)
	}

	// The clamped cart goes through on retry.
	if _, err := h.svc.Execute(context.Background(), h.session, pickupCheckout()); err != nil {
		t.Fatalf("retry after clamp: %v", err)
	}
}

func TestExecuteAppliesPromotion(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	productID := h.seedProduct(t, 50000, 10)
	h.addToCart(t, productID, 1)

	promoID := uuid.New()
	if err := h.conn.Exec(
		`INSERT INTO promotions (id, code, discount_percent, usage_limit, valid_from, valid_until, is_active)
		 VALUES (?, 'WELCOME10', '10', 5, ?, ?, 1)`,
		promoID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour),
	).Error; err != nil {
		t.Fatalf("seed promotion: %v", err)
	}

	in := pickupCheckout()
	in.PromotionCode = "welcome10"

	order, err := h.svc.Execute(context.Background(), h.session, in)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !order.DiscountAmount.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("discount = %s, want 5000", order.DiscountAmount)
	}
	if order.PromotionID == nil || *order.PromotionID != promoID {
		t.Fatalf("promotion id = %v, want %s", order.PromotionID, promoID)
	}
}

func TestExecuteRejectsBadPromotionBeforeOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	productID := h.seedProduct(t, 20000, 10)
	h.addToCart(t, productID, 1)

	in := pickupCheckout()
	in.PromotionCode = "NOSUCHCODE"

	_, err := h.svc.Execute(context.Background(), h.session, in)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePromotion {
		t.Fatalf("expected promotion error, got %v", err)
	}

	var count int64
	if err := h.conn.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("orders = %d, want 0", count)
	}
}

func TestExecuteValidationFailureLeavesCartActive(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	productID := h.seedProduct(t, 20000, 10)
	h.addToCart(t, productID, 1)

	in := pickupCheckout()
	in.PickupDate = nil
	in.PickupTime = nil

	_, err := h.svc.Execute(context.Background(), h.session, in)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	var status string
	if err := h.conn.Raw("SELECT status FROM cart_records WHERE session_token = ?", h.session).Scan(&status).Error; err != nil {
		t.Fatalf("cart status: %v", err)
	}
	if status != string(models.CartStatusActive) {
		t.Fatalf("cart status = %q, want active", status)
	}
}

func TestExecuteRecordsAddressOptIn(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	productID := h.seedProduct(t, 20000, 10)
	h.addToCart(t, productID, 1)

	userID := uuid.New()
	in := pickupCheckout()
	in.UserID = &userID
	in.SaveAddress = true

	order, err := h.svc.Execute(context.Background(), h.session, in)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	key := h.optIn.IdempotencyKey(postpayment.AddressOptInScope, order.ID.String())
	if h.optIn.values[key] != "1" {
		t.Fatalf("opt-in flag not stored under %q", key)
	}
}
