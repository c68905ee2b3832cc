package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adorncommerce/adorn-backend/pkg/config"
	pkgerrors "github.com/adorncommerce/adorn-backend/pkg/errors"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Client exposes the Paystack transaction primitives with centralized auth,
// logging, bounded timeouts, and error mapping.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	secretKey   string
	callbackURL string
	timeout     time.Duration
	testMode    bool
	logger      *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		secretKey:   secret,
		callbackURL: strings.TrimSpace(cfg.CallbackURL),
		timeout:     timeout,
		testMode:    cfg.TestMode,
		logger:      logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// TestMode reports whether the client simulates charges instead of calling
// the provider.
func (c *Client) TestMode() bool {
	if c == nil {
		return false
	}
	return c.testMode
}

// InitializeParams opens a hosted payment session.
type InitializeParams struct {
	Email       string         `json:"email"`
	AmountMinor int64          `json:"amount"`
	Currency    string         `json:"currency,omitempty"`
	Reference   string         `json:"reference,omitempty"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// InitializeResult carries the redirect target for the buyer.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResult is the provider's view of a transaction after redirect-back.
type VerifyResult struct {
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	AmountMinor     int64  `json:"amount"`
	Currency        string `json:"currency"`
	Channel         string `json:"channel"`
	GatewayResponse string `json:"gateway_response"`
	PaidAt          string `json:"paid_at"`
}

// Success reports whether the provider settled the charge.
func (v VerifyResult) Success() bool {
	return strings.EqualFold(v.Status, "success")
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize opens a payment session and returns the authorization URL.
func (c *Client) Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	if strings.TrimSpace(params.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer email required")
	}
	if params.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if params.CallbackURL == "" {
		params.CallbackURL = c.callbackURL
	}

	c.log(ctx, "request", "initialize_transaction", map[string]any{
		"reference": params.Reference,
		"amount":    params.AmountMinor,
	})

	var result InitializeResult
	if err := c.post(ctx, "/transaction/initialize", params, &result); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{
		"reference": result.Reference,
	})
	return &result, nil
}

// Verify fetches the authoritative transaction state by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	var result VerifyResult
	path := "/transaction/verify/" + url.PathEscape(reference)
	if err := c.get(ctx, path, &result); err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": result.Reference,
		"status":    result.Status,
	})
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode paystack request")
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return pkgerrors.Wrap(pkgerrors.CodePaymentTimeout, err, "paystack request timed out")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paystack response")
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack response")
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Status {
		msg := envelope.Message
		if msg == "" {
			msg = fmt.Sprintf("paystack returned status %d", resp.StatusCode)
		}
		code := pkgerrors.CodeDependency
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
			code = pkgerrors.CodePaymentDeclined
		}
		return pkgerrors.New(code, msg)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack payload")
		}
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	merged := map[string]any{
		"provider":  "paystack",
		"phase":     phase,
		"operation": operation,
	}
	for k, v := range fields {
		merged[k] = v
	}
	logCtx := c.logger.WithFields(ctx, merged)
	c.logger.Info(logCtx, "paystack."+operation)
}
