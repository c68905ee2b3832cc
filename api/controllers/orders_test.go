package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/api/middleware"
	ordersvc "github.com/adorncommerce/adorn-backend/internal/orders"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
)

type stubOrderService struct {
	order *models.Order
	err   error
}

func (s *stubOrderService) Create(ctx context.Context, in ordersvc.CreateInput) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) CreateTx(tx *gorm.DB, in ordersvc.CreateInput) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) GetByReference(ctx context.Context, reference string) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) ChangeStatus(ctx context.Context, in ordersvc.StatusChangeInput) (*models.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) List(ctx context.Context, params ordersvc.ListParams) ([]models.Order, string, error) {
	if s.order == nil {
		return nil, "", s.err
	}
	return []models.Order{*s.order}, "", s.err
}

func orderRequest(orderNumber string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderNumber, nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderNumber", orderNumber)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestOrderFetchGuestOrder(t *testing.T) {
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    "ADN-20260901-000003",
		Email:          "guest@example.com",
		Status:         enums.OrderStatusPending,
		PaymentStatus:  enums.PaymentStatusPaid,
		Currency:       enums.CurrencyNGN,
		DeliveryMethod: enums.DeliveryMethodShipping,
	}
	handler := OrderFetch(&stubOrderService{order: order}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(order.OrderNumber))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderNumber != order.OrderNumber {
		t.Fatalf("unexpected order number: %s", envelope.Data.OrderNumber)
	}
}

func TestOrderFetchHidesOtherUsersOrder(t *testing.T) {
	owner := uuid.New()
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ADN-20260901-000004",
		UserID:      &owner,
	}
	handler := OrderFetch(&stubOrderService{order: order}, nil)

	stranger := uuid.New()
	req := orderRequest(order.OrderNumber)
	req = req.WithContext(middleware.WithUserID(req.Context(), stranger.String()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestOrderFetchOwnerSeesOrder(t *testing.T) {
	owner := uuid.New()
	order := &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ADN-20260901-000005",
		UserID:      &owner,
	}
	handler := OrderFetch(&stubOrderService{order: order}, nil)

	req := orderRequest(order.OrderNumber)
	req = req.WithContext(middleware.WithUserID(req.Context(), owner.String()))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestOrderFetchNotFound(t *testing.T) {
	handler := OrderFetch(&stubOrderService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest("ADN-20260901-999999"))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
