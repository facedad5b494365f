package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/wetter/internal/weather"
)

// maxBodyBytes bounds how much of a provider response is read. A year of
// hourly archive data is well below this.
const maxBodyBytes = 32 << 20

// BackoffConfig controls the retry schedule: InitialInterval doubles after
// every attempt and is capped at MaxInterval.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (b BackoffConfig) delay(attempt int) time.Duration {
	d := b.InitialInterval << attempt
	if b.MaxInterval > 0 && (d > b.MaxInterval || d <= 0) {
		d = b.MaxInterval
	}
	return d
}

func defaultBackoff() BackoffConfig {
	return BackoffConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRetryableStatus = errors.New("retryable status")
	errCircuitOpen     = errors.New("circuit breaker open")
	errNoHTTPClient    = errors.New("http client not configured")
	errInvalidBackoff  = errors.New("invalid backoff configuration")
)

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// retryable reports whether a status is worth another attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// fetch performs a GET of u with retries and the circuit breaker. Statuses
// other than 429 and 5xx are final and come back as a Response, as does the
// last retryable one once retries run out. An error means no response was
// received at all.
func fetch(ctx context.Context, cfg HTTPClientConfig, cb *gobreaker.CircuitBreaker, u string) (weather.Response, error) {
	if cfg.Client == nil {
		return weather.Response{}, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return weather.Response{}, errInvalidBackoff
	}

	var last weather.Response
	for attempt := 0; ; attempt++ {
		resp, err := fetchOnce(ctx, cfg.Client, cb, u)
		if resp.Status != 0 {
			last = resp
		}

		switch {
		case err == nil:
			return resp, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return weather.Response{}, fmt.Errorf("%w: %v", errCircuitOpen, err)
		case ctx.Err() != nil:
			return weather.Response{}, ctx.Err()
		}

		if attempt >= cfg.Backoff.MaxRetries {
			if last.Status != 0 {
				return last, nil
			}
			return weather.Response{}, err
		}

		timer := time.NewTimer(cfg.Backoff.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return weather.Response{}, ctx.Err()
		case <-timer.C:
		}
	}
}

// fetchOnce runs a single attempt through the breaker. Retryable statuses
// count as breaker failures and are reported as errRetryableStatus alongside
// the response.
func fetchOnce(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, u string) (weather.Response, error) {
	var out weather.Response
	_, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		out = weather.Response{Status: resp.StatusCode, Body: body}

		if retryable(resp.StatusCode) {
			return nil, errRetryableStatus
		}
		return nil, nil
	})
	return out, err
}
