package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/wetter/internal/weather"
)

const (
	openMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"
	openMeteoArchiveURL  = "https://archive-api.open-meteo.com/v1/archive"

	openMeteoHourly     = "temperature_2m,windspeed_10m"
	openMeteoTimeLayout = "2006-01-02T15:04"
)

// OpenMeteoProvider implements weather.Adapter for Open-Meteo. The forecast
// variant covers recent days and returns a few days ahead; the archive variant
// is strictly historical and used for backfills.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	forecast bool
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

var _ weather.Adapter = (*OpenMeteoProvider)(nil)

// NewOpenMeteoForecast returns the forecast adapter.
func NewOpenMeteoForecast(client *http.Client) *OpenMeteoProvider {
	return newOpenMeteo("openmeteo-forecast", openMeteoForecastURL, true, client)
}

// NewOpenMeteoArchive returns the historical archive adapter.
func NewOpenMeteoArchive(client *http.Client) *OpenMeteoProvider {
	return newOpenMeteo("openmeteo-archive", openMeteoArchiveURL, false, client)
}

func newOpenMeteo(name, baseURL string, forecast bool, client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     name,
		baseURL:  baseURL,
		forecast: forecast,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newCircuitBreaker(name),
	}
}

// WithBaseURL points the adapter at another endpoint (mirrors, tests).
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// URL renders the request for a ticket. Dates are calendar days in the
// ticket timezone, which is also the timezone of the returned hourly times.
func (p *OpenMeteoProvider) URL(t weather.Ticket) (string, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.2f", t.Lat))
	values.Set("longitude", fmt.Sprintf("%.2f", t.Lon))
	values.Set("timezone", t.Timezone)
	values.Set("start_date", t.StartDate())
	values.Set("end_date", t.EndDate())
	values.Set("hourly", openMeteoHourly)
	if p.forecast {
		values.Set("current_weather", "true")
	}
	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil
}

type openMeteoPayload struct {
	Timezone         string `json:"timezone"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
	Hourly           struct {
		Time          []string   `json:"time"`
		Temperature2M []*float64 `json:"temperature_2m"`
		WindSpeed10M  []*float64 `json:"windspeed_10m"`
	} `json:"hourly"`
}

// Parse turns a response body into measurements in UTC. Hours the provider
// has no value for yet (null) are skipped.
func (p *OpenMeteoProvider) Parse(body []byte) ([]weather.Measurement, error) {
	var payload openMeteoPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", p.name, err)
	}

	h := payload.Hourly
	if len(h.Temperature2M) != len(h.Time) || len(h.WindSpeed10M) != len(h.Time) {
		return nil, fmt.Errorf("%s: %d times, %d temperatures, %d wind speeds", p.name, len(h.Time), len(h.Temperature2M), len(h.WindSpeed10M))
	}

	zone := responseZone(payload.Timezone, payload.UTCOffsetSeconds)
	rows := make([]weather.Measurement, 0, len(h.Time))
	for i, s := range h.Time {
		ts, err := time.ParseInLocation(openMeteoTimeLayout, s, zone)
		if err != nil {
			return nil, fmt.Errorf("%s: time %q: %w", p.name, s, err)
		}
		if h.Temperature2M[i] == nil || h.WindSpeed10M[i] == nil {
			continue
		}
		rows = append(rows, weather.Measurement{
			Time:        ts.UTC(),
			Temperature: *h.Temperature2M[i],
			Wind:        *h.WindSpeed10M[i],
		})
	}
	return rows, nil
}

// responseZone resolves the timezone the hourly times are expressed in.
func responseZone(name string, offsetSeconds int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if offsetSeconds != 0 {
		return time.FixedZone(name, offsetSeconds)
	}
	return time.UTC
}

// Get requests the ticket window from Open-Meteo.
func (p *OpenMeteoProvider) Get(ctx context.Context, t weather.Ticket) (weather.Response, error) {
	u, err := p.URL(t)
	if err != nil {
		return weather.Response{}, err
	}
	return fetch(ctx, p.httpCfg, p.circuit, u)
}
