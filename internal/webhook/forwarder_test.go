package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wacampaign/internal/domain"
)

func testForwarder(url string) *Forwarder {
	return &Forwarder{
		URL:        url,
		AppSecret:  "app-secret",
		Client:     &http.Client{Timeout: time.Second},
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
		RetryMax:   5 * time.Millisecond,
	}
}

func TestForwarderSignsAndRetries(t *testing.T) {
	var calls atomic.Int32
	proc := NewProcessor()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !VerifySignature("app-secret", body, r.Header.Get(SignatureHeader)) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		proc.Process(ev)
	}))
	defer srv.Close()

	err := testForwarder(srv.URL).Post(context.Background(), StatusEvent("wamid.1", "919876543210", domain.StatusDelivered))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, proc.ReportsFor("wamid.1"), 1)
}

func TestForwarderStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := testForwarder(srv.URL).Post(context.Background(), StatusEvent("wamid.1", "p", domain.StatusRead))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-retryable")
	assert.Equal(t, int32(1), calls.Load())
}

func TestForwarderGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := testForwarder(srv.URL).Post(context.Background(), StatusEvent("wamid.1", "p", domain.StatusRead))
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestForwarderBackoffCapped(t *testing.T) {
	f := &Forwarder{RetryBase: 100 * time.Millisecond, RetryMax: time.Second}
	assert.Equal(t, 100*time.Millisecond, f.backoff(0))
	assert.Equal(t, 400*time.Millisecond, f.backoff(2))
	assert.Equal(t, time.Second, f.backoff(5))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, parseRetryAfter(" 2 "))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}
