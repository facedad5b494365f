package providers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	b := BackoffConfig{MaxRetries: 5, InitialInterval: 500 * time.Millisecond, MaxInterval: 3 * time.Second}

	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for attempt, w := range want {
		if got := b.delay(attempt); got != w {
			t.Errorf("delay(%d) = %s, want %s", attempt, got, w)
		}
	}
}

func TestRetryable(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusBadRequest:          false,
		http.StatusNotFound:            false,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
	} {
		if got := retryable(status); got != want {
			t.Errorf("retryable(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestFetchRejectsBadConfig(t *testing.T) {
	cb := newCircuitBreaker("test")

	if _, err := fetch(context.Background(), HTTPClientConfig{Backoff: defaultBackoff()}, cb, "http://localhost"); !errors.Is(err, errNoHTTPClient) {
		t.Fatalf("missing client: %v", err)
	}
	cfg := HTTPClientConfig{Client: http.DefaultClient, Backoff: BackoffConfig{MaxRetries: -1}}
	if _, err := fetch(context.Background(), cfg, cb, "http://localhost"); !errors.Is(err, errInvalidBackoff) {
		t.Fatalf("bad backoff: %v", err)
	}
}
