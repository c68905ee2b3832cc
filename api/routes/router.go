package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adorncommerce/adorn-backend/api/controllers"
	"github.com/adorncommerce/adorn-backend/api/middleware"
	addrsvc "github.com/adorncommerce/adorn-backend/internal/addresses"
	cartsvc "github.com/adorncommerce/adorn-backend/internal/cart"
	checkoutsvc "github.com/adorncommerce/adorn-backend/internal/checkout"
	invsvc "github.com/adorncommerce/adorn-backend/internal/inventory"
	notifsvc "github.com/adorncommerce/adorn-backend/internal/notifications"
	ordersvc "github.com/adorncommerce/adorn-backend/internal/orders"
	paymentsvc "github.com/adorncommerce/adorn-backend/internal/payments"
	postpay "github.com/adorncommerce/adorn-backend/internal/postpayment"
	promosvc "github.com/adorncommerce/adorn-backend/internal/promotions"
	"github.com/adorncommerce/adorn-backend/pkg/config"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	pkgredis "github.com/adorncommerce/adorn-backend/pkg/redis"
)

// NewRouter assembles the full API surface. Storefront routes serve guests
// behind a session token; admin routes require the admin role.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database controllers.Pinger,
	cache *pkgredis.Client,
	metricsHandler http.Handler,
	cartService cartsvc.Service,
	promotionService promosvc.Service,
	orderService ordersvc.Service,
	checkoutService checkoutsvc.Service,
	paymentService paymentsvc.Service,
	settlementService postpay.Service,
	inventoryService invsvc.Service,
	addressService addrsvc.Service,
	notificationService notifsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var idempotencyStore pkgredis.IdempotencyStore
	if cache != nil {
		idempotencyStore = cache
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, cache, logg))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.Session(logg))
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Post("/", controllers.CartAddItem(cartService, logg))
			r.Post("/refresh", controllers.CartRefresh(cartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.With(middleware.Session(logg)).
			Post("/promotions/validate", controllers.ValidatePromotion(promotionService, cartService, logg))

		r.With(middleware.Session(logg), middleware.Idempotency(idempotencyStore, logg)).
			Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.With(middleware.Idempotency(idempotencyStore, logg)).
			Post("/payments/initialize", controllers.PaymentInitialize(paymentService, logg))
		r.Post("/payments/verify", controllers.PaymentVerify(paymentService, settlementService, logg))

		r.Get("/orders/{orderNumber}", controllers.OrderFetch(orderService, logg))

		r.With(middleware.RequireAuth(cfg.JWT, logg)).
			Get("/addresses", controllers.AddressList(addressService, logg))
		r.With(middleware.RequireAuth(cfg.JWT, logg), middleware.Idempotency(idempotencyStore, logg)).
			Post("/addresses", controllers.AddressCreate(addressService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(cfg.JWT, logg))
			r.Get("/", controllers.NotificationList(notificationService, logg))
			r.Post("/{id}/read", controllers.NotificationMarkRead(notificationService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(cfg.JWT, logg))

		// Idempotency attaches per route: chi only exposes the full route
		// pattern to inline middleware, and the matcher needs it.
		idem := middleware.Idempotency(idempotencyStore, logg)

		r.Route("/inventory/{kind}/{id}", func(r chi.Router) {
			r.Get("/", controllers.InventoryFetch(inventoryService, logg))
			r.With(idem).Put("/", controllers.InventorySet(inventoryService, logg))
			r.With(idem).Post("/quick-sale", controllers.InventoryQuickSale(inventoryService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(orderService, logg))
			r.With(idem).Post("/{id}/status", controllers.AdminOrderStatusChange(orderService, logg))
		})
	})

	return r
}
