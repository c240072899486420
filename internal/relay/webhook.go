package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"saraban/pkg/circuitbreaker"
	"saraban/pkg/metrics"
	"saraban/pkg/trace"
	"saraban/pkg/util"
)

// WebhookClient posts JSON to a single endpoint behind a circuit breaker.
type WebhookClient struct {
	url     string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewWebhookClient builds a client whose breaker counts only retryable
// errors. 4xx replies are returned without tripping it.
func NewWebhookClient(url string, timeout time.Duration, logger *zap.Logger) *WebhookClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg := circuitbreaker.DefaultConfig()
	cfg.IsFailure = func(err error) bool {
		retryable, _ := util.IsRetryableError(err)
		return retryable
	}
	cfg.OnStateChange = func(from, to circuitbreaker.State) {
		metrics.SetRelayBreakerState(int(to))
		logger.Warn("Webhook circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("url", url),
		)
	}
	return &WebhookClient{
		url:     url,
		http:    &http.Client{Timeout: timeout},
		breaker: circuitbreaker.NewCircuitBreaker(cfg),
	}
}

// Post sends payload and treats any non-2xx reply as *util.HTTPStatusError.
func (w *WebhookClient) Post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if traceID := trace.FromContext(ctx); traceID != "" {
			req.Header.Set(trace.HeaderName, traceID)
		}

		resp, err := w.http.Do(req)
		if err != nil {
			return fmt.Errorf("post webhook: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &util.HTTPStatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	})
}

// State exposes the breaker state for logs.
func (w *WebhookClient) State() string {
	return w.breaker.GetState().String()
}
