package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wacampaign/internal/config"
	"wacampaign/internal/domain"
)

// Forwarder posts signed webhook envelopes to an external endpoint, retrying
// throttled and server-side failures with capped exponential backoff.
type Forwarder struct {
	URL        string
	AppSecret  string
	Client     *http.Client
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration
}

func NewForwarder(cfg config.Forward, appSecret string) *Forwarder {
	return &Forwarder{
		URL:        cfg.URL,
		AppSecret:  appSecret,
		Client:     &http.Client{Timeout: cfg.Timeout},
		MaxRetries: cfg.MaxRetries,
		RetryBase:  cfg.RetryBase,
		RetryMax:   cfg.RetryMax,
	}
}

func (f *Forwarder) Post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal webhook: %w", err)
	}

	maxAttempts := f.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if f.AppSecret != "" {
			req.Header.Set(SignatureHeader, Sign(f.AppSecret, body))
		}

		resp, err := f.Client.Do(req)
		status, retryAfter := 0, time.Duration(0)
		if resp != nil {
			status = resp.StatusCode
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			_ = resp.Body.Close()
		}
		if err == nil && status >= 200 && status < 300 {
			return nil
		}

		if attempt == maxAttempts-1 {
			if err != nil {
				return fmt.Errorf("webhook post failed after %d attempts: %w", attempt+1, err)
			}
			return fmt.Errorf("webhook post failed after %d attempts: status=%d", attempt+1, status)
		}
		if err == nil && !isRetryableStatus(status) {
			return fmt.Errorf("webhook post non-retryable: status=%d", status)
		}

		wait := retryAfter
		if wait <= 0 {
			wait = f.backoff(attempt)
		}
		slog.Warn("webhook forward retrying", "url", f.URL, "attempt", attempt+1, "status", status, "wait_ms", wait.Milliseconds())

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func (f *Forwarder) backoff(attempt int) time.Duration {
	base, max := f.RetryBase, f.RetryMax
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	if max <= 0 {
		max = 10 * time.Second
	}
	wait := base * time.Duration(1<<attempt)
	if wait > max {
		wait = max
	}
	return wait
}

// Listener posts each simulated report as a status webhook in the background.
func (f *Forwarder) Listener(ctx context.Context) func(domain.DeliveryReport) {
	return func(r domain.DeliveryReport) {
		go func() {
			if err := f.Post(ctx, StatusEvent(r.MessageID, r.Phone, r.Status)); err != nil {
				slog.Error("webhook forward failed", "message_id", r.MessageID, "status", r.Status, "err", err)
			}
		}()
	}
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
