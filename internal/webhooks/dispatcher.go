package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/adorncommerce/adorn-backend/pkg/config"
	"github.com/adorncommerce/adorn-backend/pkg/db/models"
	"github.com/adorncommerce/adorn-backend/pkg/logger"
	"github.com/adorncommerce/adorn-backend/pkg/metrics"
	"github.com/adorncommerce/adorn-backend/pkg/outbox"
)

// PermanentError marks a delivery failure that retrying cannot fix, such as
// the receiver rejecting the payload. The dispatcher worker sends these to
// the DLQ without burning further attempts.
type PermanentError struct {
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("webhook rejected with status %d: %s", e.StatusCode, e.Body)
}

// Dispatcher POSTs outbox events to the configured webhook URL.
type Dispatcher struct {
	httpClient *http.Client
	targetURL  string
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
}

// NewDispatcher builds a webhook dispatcher from configuration.
func NewDispatcher(cfg config.WebhookConfig, m *metrics.CheckoutMetrics, logg *logger.Logger) (*Dispatcher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		httpClient: &http.Client{Timeout: timeout},
		targetURL:  cfg.URL,
		metrics:    m,
		logg:       logg,
	}, nil
}

// Deliver posts one event. Transient failures are retried with exponential
// backoff inside this call; the worker's attempt counter covers longer
// outages across polls.
func (d *Dispatcher) Deliver(ctx context.Context, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return &PermanentError{StatusCode: 0, Body: "malformed outbox payload"}
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return d.post(ctx, event, envelope)
	})

	fields := map[string]any{
		"event_id":   event.ID.String(),
		"event_type": event.EventType,
	}
	logCtx := d.logg.WithFields(ctx, fields)
	if err != nil {
		d.metrics.IncWebhook(string(event.EventType), "failure")
		d.logg.Warn(logCtx, "webhook delivery failed")
		return err
	}

	d.metrics.IncWebhook(string(event.EventType), "success")
	d.logg.Info(logCtx, "webhook delivered")
	return nil
}

func (d *Dispatcher) post(ctx context.Context, event models.OutboxEvent, envelope outbox.PayloadEnvelope) error {
	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.targetURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", string(event.EventType))
	req.Header.Set("X-Webhook-Id", envelope.EventID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= 500 {
		return retry.RetryableError(fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}
	return &PermanentError{StatusCode: resp.StatusCode, Body: string(raw)}
}
