// File: internal/sink/webhook.go
package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wildmooseai/pageprep/api/schemas"
	"github.com/wildmooseai/pageprep/internal/config"
)

// WebhookSink POSTs each event as JSON to a configured URL, rate limited
// so a busy watcher cannot flood the receiver.
type WebhookSink struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookSink creates a webhook sink from configuration.
func NewWebhookSink(cfg config.WebhookConfig) (*WebhookSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook sink requires a URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		return nil, fmt.Errorf("webhook sink requires a positive rate")
	}
	return &WebhookSink{
		url:     cfg.URL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}, nil
}

func (s *WebhookSink) Emit(ctx context.Context, ev schemas.Event) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook rejected event: %s", resp.Status)
	}
	return nil
}

func (s *WebhookSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
