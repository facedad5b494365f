package weather

import (
	"fmt"
	"time"
)

// Column names of the two measurement series.
const (
	ColumnTemperature = "temperature"
	ColumnWind        = "wind"
)

// Columns lists the measurement columns in their canonical order.
var Columns = []string{ColumnTemperature, ColumnWind}

// Measurement is a single hourly reading.
type Measurement struct {
	Time        time.Time `json:"time"` // always UTC inside the store
	Temperature float64   `json:"temperature"`
	Wind        float64   `json:"wind"`
}

// Location is a point on the globe in degrees.
type Location struct {
	Lat float64 `json:"lat" toml:"lat" yaml:"lat"`
	Lon float64 `json:"lon" toml:"lon" yaml:"lon"`
}

// Validate checks the coordinate bounds.
func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return &InputError{Field: "lat", Reason: fmt.Sprintf("%v outside [-90, 90]", l.Lat)}
	}
	if l.Lon < -180 || l.Lon > 180 {
		return &InputError{Field: "lon", Reason: fmt.Sprintf("%v outside [-180, 180]", l.Lon)}
	}
	return nil
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return fmt.Sprintf("%.2f:%.2f", l.Lat, l.Lon)
}

// RequireAware rejects instants that carry no usable timezone information.
// The zero time.Time is what an unset or naive instant looks like once it
// crossed into Go.
func RequireAware(field string, t time.Time) error {
	if t.IsZero() {
		return &InputError{Field: field, Reason: "instant has no timezone"}
	}
	return nil
}

// instantLayouts are the accepted textual instants; all carry an offset.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04-07:00",
}

// ParseInstant parses a timestamp that must carry an explicit UTC offset.
func ParseInstant(s string) (time.Time, error) {
	for _, layout := range instantLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, &InputError{Field: "instant", Reason: fmt.Sprintf("%q is not a timestamp with offset", s)}
}
