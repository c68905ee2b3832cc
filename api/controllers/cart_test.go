package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/adorncommerce/adorn-backend/api/middleware"
	cartsvc "github.com/adorncommerce/adorn-backend/internal/cart"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
)

type stubCartService struct {
	record  *models.CartRecord
	refresh *cartsvc.RefreshResult
	err     error
	added   []cartsvc.AddItemInput
}

func (s *stubCartService) Get(ctx context.Context, sessionToken string) (*models.CartRecord, error) {
	return s.record, s.err
}

func (s *stubCartService) AddItem(ctx context.Context, sessionToken string, userID *uuid.UUID, in cartsvc.AddItemInput) (*models.CartRecord, error) {
	s.added = append(s.added, in)
	return s.record, s.err
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, sessionToken string, itemID uuid.UUID, quantity int) (*models.CartRecord, error) {
	return s.record, s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, sessionToken string, itemID uuid.UUID) (*models.CartRecord, error) {
	return s.record, s.err
}

func (s *stubCartService) Clear(ctx context.Context, sessionToken string) error { return s.err }

func (s *stubCartService) Refresh(ctx context.Context, sessionToken string) (*cartsvc.RefreshResult, error) {
	return s.refresh, s.err
}

func (s *stubCartService) MarkConvertedTx(tx *gorm.DB, cartID uuid.UUID) error { return nil }

func (s *stubCartService) Subtotal(cart *models.CartRecord) decimal.Decimal {
	if cart == nil {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, item := range cart.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func sessionRequest(method, target string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithSessionToken(req.Context(), "session-1"))
}

func TestCartFetchReturnsCartWithSubtotal(t *testing.T) {
	record := &models.CartRecord{
		ID:     uuid.New(),
		Status: models.CartStatusActive,
		Items: []models.CartItem{
			{ID: uuid.New(), ProductID: uuid.New(), Title: "Ankara Tote", SKU: "TOTE-1", Price: decimal.NewFromInt(12500), Quantity: 2},
		},
	}
	handler := CartFetch(&stubCartService{record: record}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodGet, "/api/v1/cart", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != record.ID {
		t.Fatalf("unexpected cart id: %s", envelope.Data.ID)
	}
	if !envelope.Data.Subtotal.Equal(decimal.NewFromInt(25000)) {
		t.Fatalf("unexpected subtotal: %s", envelope.Data.Subtotal)
	}
}

func TestCartAddItemRejectsZeroQuantity(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, nil)
	body := `{"product_id":"` + uuid.NewString() + `","quantity":0}`

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartAddItemOutOfStock(t *testing.T) {
	stub := &stubCartService{err: pkgerrors.New(pkgerrors.CodeStockConflict, "item is out of stock")}
	handler := CartAddItem(stub, nil)
	body := `{"product_id":"` + uuid.NewString() + `","quantity":1}`

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart", body))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeStockConflict) {
		t.Fatalf("unexpected error code: %s", envelope.Error.Code)
	}
}

func TestCartUpdateItemRejectsBadID(t *testing.T) {
	handler := CartUpdateItem(&stubCartService{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPatch, "/api/v1/cart/items/not-a-uuid", `{"quantity":1}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartRefreshReportsChanges(t *testing.T) {
	removed := uuid.New()
	stub := &stubCartService{refresh: &cartsvc.RefreshResult{
		Cart:           &models.CartRecord{ID: uuid.New(), Status: models.CartStatusActive},
		RemovedItemIDs: []uuid.UUID{removed},
		Changed:        true,
	}}
	handler := CartRefresh(stub, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/cart/refresh", ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cartRefreshResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Changed {
		t.Fatalf("expected changed flag")
	}
	if len(envelope.Data.RemovedItemIDs) != 1 || envelope.Data.RemovedItemIDs[0] != removed {
		t.Fatalf("removed ids not reported")
	}
}
