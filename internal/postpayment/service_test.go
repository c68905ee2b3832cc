package postpayment

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/internal/addresses"
	"github.com/adorncommerce/adorn-backend/internal/inventory"
	"github.com/adorncommerce/adorn-backend/internal/notifications"
	"github.com/adorncommerce/adorn-backend/internal/orders"
	"github.com/adorncommerce/adorn-backend/internal/payments"
	"github.com/adorncommerce/adorn-backend/internal/promotions"
	"github.com/adorncommerce/adorn-backend/pkg/db"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/outbox"
)

type fakeGuard struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{values: map[string]string{}}
}

func (g *fakeGuard) Get(_ context.Context, key string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	value, ok := g.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (g *fakeGuard) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.values[key]; ok {
		return false, nil
	}
	g.values[key] = value.(string)
	return true, nil
}

func (g *fakeGuard) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (g *fakeGuard) PaymentReferenceKey(reference string) string {
	return "payment_ref:verified:" + reference
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:postpayment_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	ddl := []string{`
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
CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'shipping',
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  company TEXT,
  address_line_1 TEXT NOT NULL DEFAULT '',
  address_line_2 TEXT,
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  postal_code TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT 'NG',
  phone TEXT,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
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
);`, `
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
);`}
	for _, stmt := range ddl {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB, guard Guard) Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	notifier, err := notifications.NewService(notifications.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("notifications service: %v", err)
	}
	addressSvc, err := addresses.NewService(addresses.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("addresses service: %v", err)
	}
	promoSvc, err := promotions.NewService(promotions.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("promotions service: %v", err)
	}
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	svc, err := NewService(
		orders.NewRepository(conn),
		db.NewFromConn(conn),
		notifier,
		events,
		addressSvc,
		promoSvc,
		inventory.NewRepository(conn),
		guard,
		logg,
	)
	if err != nil {
		t.Fatalf("postpayment service: %v", err)
	}
	return svc
}

type seeded struct {
	order     *models.Order
	productID uuid.UUID
	promoID   uuid.UUID
	reference string
}

func seedPaidScenario(t *testing.T, conn *gorm.DB) seeded {
	t.Helper()

	productID := uuid.New()
	if err := conn.Exec(
		`INSERT INTO products (id, title, sku, price, inventory_quantity, track_inventory, is_active)
		 VALUES (?, 'Adire Tote', 'ADT-1', '12500', 10, 1, 1)`,
		productID,
	).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	promoID := uuid.New()
	if err := conn.Exec(
		`INSERT INTO promotions (id, code, discount_percent, usage_limit, valid_from, valid_until, is_active)
		 VALUES (?, 'WELCOME10', '10', 1, ?, ?, 1)`,
		promoID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour),
	).Error; err != nil {
		t.Fatalf("seed promotion: %v", err)
	}

	reference := "ADN-PAY-" + uuid.NewString()
	order := models.Order{
		ID:               uuid.New(),
		OrderNumber:      "ADN-20260815-7F3K2Q",
		Email:            "buyer@example.com",
		Status:           enums.OrderStatusPending,
		PaymentStatus:    enums.PaymentStatusPending,
		PaymentReference: &reference,
		Subtotal:         decimal.NewFromInt(25000),
		TaxAmount:        decimal.RequireFromString("1875"),
		ShippingAmount:   decimal.NewFromInt(2500),
		DiscountAmount:   decimal.NewFromInt(2500),
		Total:            decimal.NewFromInt(26875),
		Currency:         enums.CurrencyNGN,
		DeliveryMethod:   enums.DeliveryMethodShipping,
		PromotionID:      &promoID,
		ShippingAddress: &models.OrderAddress{
			FirstName:    "Chiamaka",
			LastName:     "Obi",
			AddressLine1: "14 Adeola Odeku Street",
			City:         "Lagos",
			State:        "Lagos",
			PostalCode:   "101241",
			Country:      "NG",
		},
		Items: []models.OrderItem{{
			ID:        uuid.New(),
			ProductID: productID,
			Title:     "Adire Tote",
			SKU:       "ADT-1",
			Quantity:  2,
			Price:     decimal.NewFromInt(12500),
			Total:     decimal.NewFromInt(25000),
		}},
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return seeded{order: &order, productID: productID, promoID: promoID, reference: reference}
}

func successOutcome(s seeded) *payments.VerifyOutcome {
	return &payments.VerifyOutcome{
		Order:     s.order,
		Reference: s.reference,
		Success:   true,
		Method:    enums.PaymentMethodPaystack,
	}
}

func countRows(t *testing.T, conn *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := conn.Raw(query, args...).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

func productQuantity(t *testing.T, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var quantity int
	if err := conn.Raw("SELECT inventory_quantity FROM products WHERE id = ?", id).Scan(&quantity).Error; err != nil {
		t.Fatalf("read quantity: %v", err)
	}
	return quantity
}

func TestSettleSuccessRunsAllSteps(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	guard := newFakeGuard()
	svc := newTestService(t, conn, guard)
	ctx := context.Background()

	seeded := seedPaidScenario(t, conn)
	userID := uuid.New()
	guard.values[guard.IdempotencyKey(AddressOptInScope, seeded.order.ID.String())] = "1"

	confirmation, err := svc.Settle(ctx, successOutcome(seeded), &userID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if confirmation.OrderNumber != seeded.order.OrderNumber {
		t.Fatalf("order number = %q", confirmation.OrderNumber)
	}
	if confirmation.PaymentReference != seeded.reference {
		t.Fatalf("reference = %q, want %q", confirmation.PaymentReference, seeded.reference)
	}

	var row models.Order
	if err := conn.First(&row, "id = ?", seeded.order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if row.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("payment_status = %s, want paid", row.PaymentStatus)
	}
	if row.PaymentMethod == nil || *row.PaymentMethod != enums.PaymentMethodPaystack {
		t.Fatalf("payment_method = %v", row.PaymentMethod)
	}

	if n := countRows(t, conn, "SELECT COUNT(*) FROM notifications WHERE type = ?", enums.NotificationTypePaymentReceived); n != 1 {
		t.Fatalf("notifications = %d, want 1", n)
	}
	if n := countRows(t, conn, "SELECT COUNT(*) FROM outbox_events WHERE event_type = ?", enums.EventPaymentSuccessful); n != 1 {
		t.Fatalf("outbox events = %d, want 1", n)
	}
	if n := countRows(t, conn, "SELECT COUNT(*) FROM addresses WHERE user_id = ?", userID); n != 1 {
		t.Fatalf("addresses = %d, want 1", n)
	}
	if n := countRows(t, conn, "SELECT COUNT(*) FROM promotion_usages WHERE promotion_id = ?", seeded.promoID); n != 1 {
		t.Fatalf("promotion usages = %d, want 1", n)
	}
	if got := productQuantity(t, conn, seeded.productID); got != 8 {
		t.Fatalf("inventory = %d, want 8", got)
	}
}

func TestSettleClaimsReferenceOnce(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	guard := newFakeGuard()
	svc := newTestService(t, conn, guard)
	ctx := context.Background()

	seeded := seedPaidScenario(t, conn)
	userID := uuid.New()

	if _, err := svc.Settle(ctx, successOutcome(seeded), &userID); err != nil {
		t.Fatalf("first settle: %v", err)
	}

	// A racing verification that slipped past the paid-state check still
	// loses the SETNX claim and must not repeat any side effect.
	confirmation, err := svc.Settle(ctx, successOutcome(seeded), &userID)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if confirmation.PaymentReference != seeded.reference {
		t.Fatalf("reference = %q", confirmation.PaymentReference)
	}

	if n := countRows(t, conn, "SELECT COUNT(*) FROM notifications"); n != 1 {
		t.Fatalf("notifications = %d, want 1", n)
	}
	if n := countRows(t, conn, "SELECT COUNT(*) FROM outbox_events"); n != 1 {
		t.Fatalf("outbox events = %d, want 1", n)
	}
	if got := productQuantity(t, conn, seeded.productID); got != 8 {
		t.Fatalf("inventory = %d, want 8", got)
	}
}

func TestSettleFailureStillRedirects(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	guard := newFakeGuard()
	svc := newTestService(t, conn, guard)
	ctx := context.Background()

	seeded := seedPaidScenario(t, conn)
	outcome := successOutcome(seeded)
	outcome.Success = false

	confirmation, err := svc.Settle(ctx, outcome, nil)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if confirmation.PaymentReference != PaymentPendingValue {
		t.Fatalf("reference = %q, want pending", confirmation.PaymentReference)
	}

	var row models.Order
	if err := conn.First(&row, "id = ?", seeded.order.ID).Error; err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if row.PaymentStatus != enums.PaymentStatusFailed {
		t.Fatalf("payment_status = %s, want failed", row.PaymentStatus)
	}

	if n := countRows(t, conn, "SELECT COUNT(*) FROM notifications"); n != 0 {
		t.Fatalf("notifications = %d, want 0", n)
	}
	if got := productQuantity(t, conn, seeded.productID); got != 10 {
		t.Fatalf("inventory = %d, want 10", got)
	}
}

func TestSettleAlreadyPaidShortCircuits(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	guard := newFakeGuard()
	svc := newTestService(t, conn, guard)
	ctx := context.Background()

	seeded := seedPaidScenario(t, conn)
	outcome := successOutcome(seeded)
	outcome.AlreadyPaid = true

	confirmation, err := svc.Settle(ctx, outcome, nil)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if confirmation.PaymentReference != seeded.reference {
		t.Fatalf("reference = %q", confirmation.PaymentReference)
	}

	if n := countRows(t, conn, "SELECT COUNT(*) FROM notifications"); n != 0 {
		t.Fatalf("notifications = %d, want 0", n)
	}
	if n := countRows(t, conn, "SELECT COUNT(*) FROM outbox_events"); n != 0 {
		t.Fatalf("outbox events = %d, want 0", n)
	}
	if got := productQuantity(t, conn, seeded.productID); got != 10 {
		t.Fatalf("inventory = %d, want 10", got)
	}
}

func TestSettleGuestSkipsAccountSteps(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	guard := newFakeGuard()
	svc := newTestService(t, conn, guard)
	ctx := context.Background()

	seeded := seedPaidScenario(t, conn)
	guard.values[guard.IdempotencyKey(AddressOptInScope, seeded.order.ID.String())] = "1"

	if _, err := svc.Settle(ctx, successOutcome(seeded), nil); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if n := countRows(t, conn, "SELECT COUNT(*) FROM addresses"); n != 0 {
		t.Fatalf("addresses = %d, want 0 for guest", n)
	}
	if n := countRows(t, conn, "SELECT COUNT(*) FROM promotion_usages"); n != 0 {
		t.Fatalf("promotion usages = %d, want 0 for guest", n)
	}
	if n := countRows(t, conn, "SELECT COUNT(*) FROM notifications"); n != 1 {
		t.Fatalf("notifications = %d, want 1", n)
	}
	if got := productQuantity(t, conn, seeded.productID); got != 8 {
		t.Fatalf("inventory = %d, want 8", got)
	}
}

func TestConfirmationEncodesPickupWindow(t *testing.T) {
	t.Parallel()

	date := "2026-08-20"
	slot := "14:00"
	order := &models.Order{
		OrderNumber:    "ADN-20260815-7F3K2Q",
		Email:          "buyer@example.com",
		DeliveryMethod: enums.DeliveryMethodPickup,
		PickupDate:     &date,
		PickupTime:     &slot,
	}

	confirmation := NewConfirmation(order, "")
	if confirmation.PaymentReference != PaymentPendingValue {
		t.Fatalf("reference = %q, want pending", confirmation.PaymentReference)
	}
	if confirmation.Pickup == nil || confirmation.Pickup.Date != date {
		t.Fatalf("pickup window missing: %+v", confirmation.Pickup)
	}

	params := confirmation.QueryParams()
	if params.Get("order") != order.OrderNumber {
		t.Fatalf("order param = %q", params.Get("order"))
	}
	if params.Get("pickup") == "" {
		t.Fatal("pickup param missing")
	}
}

// stockObservingNotifier snapshots the product quantity at the moment the
// payment-received notification fires.
type stockObservingNotifier struct {
	notifications.Service
	conn             *gorm.DB
	productID        uuid.UUID
	quantityAtNotify int
}

func (n *stockObservingNotifier) NotifyOrderEvent(ctx context.Context, kind enums.NotificationType, order *models.Order) error {
	var quantity int
	if err := n.conn.Raw("SELECT inventory_quantity FROM products WHERE id = ?", n.productID).Scan(&quantity).Error; err != nil {
		return err
	}
	n.quantityAtNotify = quantity
	return n.Service.NotifyOrderEvent(ctx, kind, order)
}

func TestSettleDecrementsStockBeforeNotification(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	seeded := seedPaidScenario(t, conn)
	ctx := context.Background()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	inner, err := notifications.NewService(notifications.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("notifications service: %v", err)
	}
	observer := &stockObservingNotifier{Service: inner, conn: conn, productID: seeded.productID}
	addressSvc, err := addresses.NewService(addresses.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("addresses service: %v", err)
	}
	promoSvc, err := promotions.NewService(promotions.NewRepository(conn), logg)
	if err != nil {
		t.Fatalf("promotions service: %v", err)
	}

	svc, err := NewService(
		orders.NewRepository(conn),
		db.NewFromConn(conn),
		observer,
		outbox.NewService(outbox.NewRepository(conn), logg),
		addressSvc,
		promoSvc,
		inventory.NewRepository(conn),
		newFakeGuard(),
		logg,
	)
	if err != nil {
		t.Fatalf("postpayment service: %v", err)
	}

	if _, err := svc.Settle(ctx, successOutcome(seeded), nil); err != nil {
		t.Fatalf("settle: %v", err)
	}

	// Seeded with 10 on hand and 2 sold; the notifier must already see 8.
	if observer.quantityAtNotify != 8 {
		t.Fatalf("quantity at notify = %d, want 8", observer.quantityAtNotify)
	}
	if got := productQuantity(t, conn, seeded.productID); got != 8 {
		t.Fatalf("final quantity = %d, want 8", got)
	}
}
