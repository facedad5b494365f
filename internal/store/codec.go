package store

import (
	"time"

	"github.com/i474232898/wetter/internal/weather"
)

// TimeLayout is the persisted timestamp format: microseconds and a numeric
// offset without colon, e.g. 2022-01-01T00:00:00.000000+0000.
const TimeLayout = "2006-01-02T15:04:05.000000-0700"

// SchemaVersion is the version written by this package.
const SchemaVersion = 1

// Raw is the persisted shape of a store.
type Raw struct {
	Version int      `json:"version"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Data    RawTable `json:"data"`
}

// RawTable is the column-major table: Data[i] is the series named Index[i],
// aligned with the timestamps in Columns.
type RawTable struct {
	Index   []string     `json:"index"`
	Columns []string     `json:"columns"`
	Data    [][]*float64 `json:"data"`
}

// FormatTime renders t canonically in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a persisted timestamp. Timestamps without offset fail.
func ParseTime(s string) (time.Time, error) {
	ts, err := time.Parse(TimeLayout, s)
	if err != nil {
		// Tolerate hand-edited files in RFC 3339, which also mandates an offset.
		if alt, altErr := time.Parse(time.RFC3339Nano, s); altErr == nil {
			return alt.UTC(), nil
		}
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// Default returns the built-in single-location, two-row dataset used when no
// store exists yet.
func Default() Raw {
	return Raw{
		Version: SchemaVersion,
		Lat:     49,
		Lon:     8.41,
		Data: RawTable{
			Index: []string{weather.ColumnTemperature, weather.ColumnWind},
			Columns: []string{
				"2023-01-01T00:00:00.000000+0000",
				"2023-01-01T01:00:00.000000+0000",
			},
			Data: [][]*float64{
				{float(7.7), float(12.7)},
				{float(6.8), float(13.0)},
			},
		},
	}
}

func float(v float64) *float64 { return &v }
