package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/wetter/internal/logger"
	"github.com/i474232898/wetter/internal/query"
	"github.com/i474232898/wetter/internal/store"
	"github.com/i474232898/wetter/internal/update"
	"github.com/i474232898/wetter/internal/weather"
)

type testService struct {
	store *store.Store
	query *query.Engine
	now   time.Time
	err   error
}

func (s *testService) Store() *store.Store  { return s.store }
func (s *testService) Query() *query.Engine { return s.query }
func (s *testService) Now() time.Time       { return s.now }

func (s *testService) Update(context.Context, bool) ([]update.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []update.Result{{ID: "run-1", State: update.StateMerged, Added: 3}}, nil
}

func newTestApp(t *testing.T, updateErr error) *fiber.App {
	t.Helper()
	st, err := store.Load(store.Default())
	if err != nil {
		t.Fatalf("load default store: %v", err)
	}
	svc := &testService{
		store: st,
		query: query.New(logger.Discard()),
		now:   time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC),
		err:   updateErr,
	}
	app := fiber.New()
	RegisterRoutes(app, svc)
	return app
}

func do(t *testing.T, app *fiber.App, method, target string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func TestLatestMeasurement(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name   string
		target string
		count  int
	}{
		{"defaults to now", "/api/v1/measurements/latest", 1},
		{"explicit offset", "/api/v1/measurements/latest?at=" + url.QueryEscape("2023-01-01T02:00:00+01:00"), 1},
		{"unescaped plus", "/api/v1/measurements/latest?at=2023-01-01T02:00:00+01:00", 1},
		{"nothing before", "/api/v1/measurements/latest?at=2022-06-01T00:00:00Z", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, app, http.MethodGet, tc.target)
			if status != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
			}

			var resp windowResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Window != "latest" || resp.Count != tc.count || len(resp.Measurements) != tc.count {
				t.Fatalf("unexpected response %+v", resp)
			}
			if tc.count == 1 {
				if want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC); !resp.Measurements[0].Time.Equal(want) {
					t.Fatalf("latest at %s, want %s", resp.Measurements[0].Time, want)
				}
				if resp.Average == nil || resp.Average.Count != 1 {
					t.Fatalf("missing average: %+v", resp.Average)
				}
			}
		})
	}
}

func TestBadRequests(t *testing.T) {
	app := newTestApp(t, nil)

	for _, target := range []string{
		"/api/v1/measurements/week?at=2023-01-01T00:00:00",
		"/api/v1/measurements/month?at=tomorrow",
		"/api/v1/measurements/months/13",
		"/api/v1/measurements/months/0",
		"/api/v1/measurements/months/may",
	} {
		t.Run(target, func(t *testing.T) {
			status, body := do(t, app, http.MethodGet, target)
			if status != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, status, body)
			}
		})
	}
}

func TestSpecificMonth(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := do(t, app, http.MethodGet, "/api/v1/measurements/months/1?at=2023-02-10T00:00:00Z")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}

	var resp windowResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Window != "January" || resp.Count != 2 || len(resp.Days) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestUpdateEndpoint(t *testing.T) {
	status, body := do(t, newTestApp(t, nil), http.MethodPost, "/api/v1/update")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}

	failing := newTestApp(t, &weather.APIError{Provider: "openmeteo-forecast", Status: 500})
	status, body = do(t, failing, http.MethodPost, "/api/v1/update")
	if status != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadGateway, status, body)
	}
}
