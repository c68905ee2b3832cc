package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"

	paymentsvc "github.com/adorncommerce/adorn-backend/internal/payments"
	postpay "github.com/adorncommerce/adorn-backend/internal/postpayment"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/types"
)

type stubPaymentService struct {
	initiate *paymentsvc.InitiateResult
	outcome  *paymentsvc.VerifyOutcome
	err      error
}

func (s *stubPaymentService) Initiate(ctx context.Context, orderID uuid.UUID) (*paymentsvc.InitiateResult, error) {
	return s.initiate, s.err
}

func (s *stubPaymentService) Verify(ctx context.Context, reference string) (*paymentsvc.VerifyOutcome, error) {
	return s.outcome, s.err
}

type stubSettler struct {
	confirmation *postpay.Confirmation
	err          error
	gotUser      *uuid.UUID
}

func (s *stubSettler) Settle(ctx context.Context, outcome *paymentsvc.VerifyOutcome, userID *uuid.UUID) (*postpay.Confirmation, error) {
	s.gotUser = userID
	return s.confirmation, s.err
}

func TestPaymentInitializeReturnsRedirect(t *testing.T) {
	stub := &stubPaymentService{initiate: &paymentsvc.InitiateResult{
		AuthorizationURL: "https://checkout.paystack.com/abc123",
		Reference:        "ADN-PAY-" + uuid.NewString(),
	}}
	handler := PaymentInitialize(stub, nil)
	body := `{"order_id":"` + uuid.NewString() + `"}`

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/payments/initialize", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data paymentInitializeResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AuthorizationURL == "" || envelope.Data.Reference == "" {
		t.Fatalf("redirect fields missing: %+v", envelope.Data)
	}
}

func TestPaymentInitializeAlreadyPaid(t *testing.T) {
	stub := &stubPaymentService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")}
	handler := PaymentInitialize(stub, nil)
	body := `{"order_id":"` + uuid.NewString() + `"}`

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/payments/initialize", body))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestPaymentVerifySettlesAndEncodesRedirect(t *testing.T) {
	reference := "ADN-PAY-" + uuid.NewString()
	payments := &stubPaymentService{outcome: &paymentsvc.VerifyOutcome{
		Reference: reference,
		Success:   true,
	}}
	settler := &stubSettler{confirmation: &postpay.Confirmation{
		OrderNumber:      "ADN-20260901-000001",
		Email:            "amaka@example.com",
		DeliveryMethod:   enums.DeliveryMethodPickup,
		PaymentReference: reference,
		Pickup:           &types.PickupWindow{Date: "2026-09-01", Time: "14:00"},
	}}
	handler := PaymentVerify(payments, settler, nil)
	body := `{"reference":"` + reference + `"}`

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/payments/verify", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data paymentVerifyResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PaymentReference != reference {
		t.Fatalf("unexpected reference: %s", envelope.Data.PaymentReference)
	}

	params, err := url.ParseQuery(envelope.Data.RedirectParams)
	if err != nil {
		t.Fatalf("parse redirect params: %v", err)
	}
	if params.Get("order") != "ADN-20260901-000001" {
		t.Fatalf("order param missing: %s", envelope.Data.RedirectParams)
	}
	if params.Get("payment") != reference {
		t.Fatalf("payment param missing: %s", envelope.Data.RedirectParams)
	}
	if params.Get("pickup") == "" {
		t.Fatalf("pickup param missing for pickup order")
	}
}

func TestPaymentVerifyFailedPaymentStillRedirects(t *testing.T) {
	reference := "ADN-PAY-" + uuid.NewString()
	payments := &stubPaymentService{outcome: &paymentsvc.VerifyOutcome{
		Reference: reference,
		Success:   false,
	}}
	settler := &stubSettler{confirmation: &postpay.Confirmation{
		OrderNumber:      "ADN-20260901-000002",
		Email:            "amaka@example.com",
		DeliveryMethod:   enums.DeliveryMethodShipping,
		PaymentReference: postpay.PaymentPendingValue,
	}}
	handler := PaymentVerify(payments, settler, nil)
	body := `{"reference":"` + reference + `"}`

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/payments/verify", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data paymentVerifyResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.PaymentReference != postpay.PaymentPendingValue {
		t.Fatalf("expected pending reference, got %s", envelope.Data.PaymentReference)
	}
}

func TestPaymentVerifyRequiresReference(t *testing.T) {
	handler := PaymentVerify(&stubPaymentService{}, &stubSettler{}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, sessionRequest(http.MethodPost, "/api/v1/payments/verify", `{}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
