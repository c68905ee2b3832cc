package payments

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/adorncommerce/adorn-backend/internal/orders"
	"github.com/adorncommerce/adorn-backend/pkg/config"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/enums"
	"github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/metrics"
	"github.com/adorncommerce/adorn-backend/pkg/paystack"
)

// Provider is the slice of the Paystack client the service needs; tests
// substitute a stub.
type Provider interface {
	Initialize(ctx context.Context, params paystack.InitializeParams) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
	TestMode() bool
}

// InitiateResult carries the redirect target for the buyer.
type InitiateResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
	IsTest           bool
}

// VerifyOutcome is the settled view of a payment attempt. The orchestrator
// consumes it; this service never mutates paid state itself.
type VerifyOutcome struct {
	Order       *models.Order
	Reference   string
	Success     bool
	AlreadyPaid bool
	IsTest      bool
	Method      enums.PaymentMethod
}

// Service opens and verifies provider payment sessions against persisted
// order totals.
type Service interface {
	Initiate(ctx context.Context, orderID uuid.UUID) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*VerifyOutcome, error)
}

type service struct {
	repo     orders.Repository
	provider Provider
	cfg      config.PaystackConfig
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewService wires the payments service.
func NewService(
	repo orders.Repository,
	provider Provider,
	cfg config.PaystackConfig,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("payment provider is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, provider: provider, cfg: cfg, metrics: m, logg: logg}, nil
}

// MinorUnits converts a naira amount to kobo for the provider. Totals are
// stored with two decimal places, so the shift is exact.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

// Initiate opens a hosted payment session for the persisted order total.
// The amount is never recomputed from the cart; the order row is the
// contract. Retrying a pending order reuses its reference so the provider
// sees one transaction.
func (s *service) Initiate(ctx context.Context, orderID uuid.UUID) (*InitiateResult, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, errors.New(errors.CodeStateConflict, "order is already paid")
	}

	reference := ""
	if order.PaymentReference != nil {
		reference = *order.PaymentReference
	}
	if reference == "" {
		reference = "ADN-PAY-" + uuid.NewString()
		if err := s.repo.SetPaymentReference(ctx, order.ID, reference); err != nil {
			return nil, err
		}
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	ctx = s.logg.WithPaymentReference(ctx, reference)

	if s.provider.TestMode() {
		s.logg.Info(ctx, "test mode payment session opened")
		return &InitiateResult{
			AuthorizationURL: s.testRedirectURL(reference),
			Reference:        reference,
			IsTest:           true,
		}, nil
	}

	result, err := s.provider.Initialize(ctx, paystack.InitializeParams{
		Email:       order.Email,
		AmountMinor: MinorUnits(order.Total),
		Currency:    order.Currency.String(),
		Reference:   reference,
		Metadata: map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payment session opened")
	return &InitiateResult{
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        result.Reference,
	}, nil
}

// Verify resolves a reference against the provider. Replays against a paid
// order short-circuit to success without another provider call.
func (s *service) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	if reference == "" {
		return nil, errors.New(errors.CodeValidation, "payment reference is required")
	}

	order, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	ctx = s.logg.WithPaymentReference(ctx, reference)

	if order.PaymentStatus == enums.PaymentStatusPaid {
		s.metrics.IncPayment("replay")
		return &VerifyOutcome{
			Order:       order,
			Reference:   reference,
			Success:     true,
			AlreadyPaid: true,
			IsTest:      order.IsTestPayment,
			Method:      methodOf(order),
		}, nil
	}

	if s.provider.TestMode() {
		s.metrics.IncPayment("test_success")
		s.logg.Info(ctx, "test mode payment verified")
		return &VerifyOutcome{
			Order:     order,
			Reference: reference,
			Success:   true,
			IsTest:    true,
			Method:    enums.PaymentMethodTest,
		}, nil
	}

	result, err := s.provider.Verify(ctx, reference)
	if err != nil {
		s.metrics.IncPayment("error")
		return nil, err
	}

	if result.Success() && result.AmountMinor != MinorUnits(order.Total) {
		s.metrics.IncPayment("amount_mismatch")
		s.logg.Warn(ctx, "provider amount does not match order total")
		return nil, errors.New(errors.CodePaymentDeclined, "charged amount does not match order total")
	}

	if result.Success() {
		s.metrics.IncPayment("success")
	} else {
		s.metrics.IncPayment("failed")
		s.logg.Warn(ctx, "payment not settled: "+result.GatewayResponse)
	}

	return &VerifyOutcome{
		Order:     order,
		Reference: reference,
		Success:   result.Success(),
		Method:    enums.PaymentMethodPaystack,
	}, nil
}

func (s *service) testRedirectURL(reference string) string {
	callback := s.cfg.CallbackURL
	if callback == "" {
		return ""
	}
	return callback + "?reference=" + url.QueryEscape(reference)
}

func methodOf(order *models.Order) enums.PaymentMethod {
	if order.PaymentMethod != nil {
		return *order.PaymentMethod
	}
	if order.IsTestPayment {
		return enums.PaymentMethodTest
	}
	return enums.PaymentMethodPaystack
}
