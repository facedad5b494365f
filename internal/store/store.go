package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/wetter/internal/weather"
)

// Store is a concurrency-safe, time-indexed table of hourly measurements for
// a single location.
type Store struct {
	mu sync.RWMutex

	version  int
	location weather.Location

	// ascending by time, unique, UTC, never empty
	rows Frame
}

var _ Table = (*Store)(nil)

// Load builds a Store from its persisted shape and checks the schema.
func Load(raw Raw) (*Store, error) {
	loc := weather.Location{Lat: raw.Lat, Lon: raw.Lon}
	if err := loc.Validate(); err != nil {
		return nil, &weather.SchemaError{Reason: "location out of range", Err: err}
	}

	t := raw.Data
	if len(t.Index) != len(t.Data) {
		return nil, &weather.SchemaError{Reason: fmt.Sprintf("%d column names for %d series", len(t.Index), len(t.Data))}
	}
	series := make(map[string][]*float64, len(t.Index))
	for i, name := range t.Index {
		if _, dup := series[name]; dup {
			return nil, &weather.SchemaError{Reason: fmt.Sprintf("column %q listed twice", name)}
		}
		series[name] = t.Data[i]
	}
	for _, col := range weather.Columns {
		if _, ok := series[col]; !ok {
			return nil, &weather.SchemaError{Reason: fmt.Sprintf("missing column %q", col)}
		}
	}
	if len(series) != len(weather.Columns) {
		return nil, &weather.SchemaError{Reason: fmt.Sprintf("expected exactly %d columns, got %d", len(weather.Columns), len(series))}
	}
	if len(t.Columns) == 0 {
		return nil, &weather.SchemaError{Reason: "table has no rows"}
	}

	temps, winds := series[weather.ColumnTemperature], series[weather.ColumnWind]
	if len(temps) != len(t.Columns) || len(winds) != len(t.Columns) {
		return nil, &weather.SchemaError{Reason: fmt.Sprintf("series lengths %d/%d do not match %d timestamps", len(temps), len(winds), len(t.Columns))}
	}

	rows := make(Frame, 0, len(t.Columns))
	seen := make(map[int64]struct{}, len(t.Columns))
	for i, s := range t.Columns {
		ts, err := ParseTime(s)
		if err != nil {
			return nil, &weather.SchemaError{Reason: fmt.Sprintf("timestamp %q", s), Err: err}
		}
		if _, dup := seen[ts.UnixNano()]; dup {
			return nil, &weather.SchemaError{Reason: fmt.Sprintf("duplicate timestamp %q", s)}
		}
		seen[ts.UnixNano()] = struct{}{}

		if temps[i] == nil || winds[i] == nil {
			return nil, &weather.SchemaError{Reason: fmt.Sprintf("missing value at %q", s)}
		}
		rows = append(rows, weather.Measurement{Time: ts, Temperature: *temps[i], Wind: *winds[i]})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })

	return &Store{
		version:  raw.Version,
		location: loc,
		rows:     rows,
	}, nil
}

// Serialize renders the store in its persisted shape.
func (s *Store) Serialize() Raw {
	s.mu.RLock()
	defer s.mu.RUnlock()

	columns := make([]string, len(s.rows))
	temps := make([]*float64, len(s.rows))
	winds := make([]*float64, len(s.rows))
	for i, r := range s.rows {
		columns[i] = FormatTime(r.Time)
		temps[i] = float(r.Temperature)
		winds[i] = float(r.Wind)
	}

	return Raw{
		Version: s.version,
		Lat:     s.location.Lat,
		Lon:     s.location.Lon,
		Data: RawTable{
			Index:   []string{weather.ColumnTemperature, weather.ColumnWind},
			Columns: columns,
			Data:    [][]*float64{temps, winds},
		},
	}
}

// Replace swaps the whole table and the location in one step. rows must be
// non-empty; they are copied, normalized to UTC and sorted.
func (s *Store) Replace(rows []weather.Measurement, loc weather.Location) error {
	if len(rows) == 0 {
		return &weather.InputError{Field: "rows", Reason: "store must keep at least one row"}
	}
	if err := loc.Validate(); err != nil {
		return err
	}

	next := make(Frame, len(rows))
	for i, r := range rows {
		if err := weather.RequireAware("time", r.Time); err != nil {
			return err
		}
		r.Time = r.Time.UTC()
		next[i] = r
	}
	sort.SliceStable(next, func(i, j int) bool { return next[i].Time.Before(next[j].Time) })
	for i := 1; i < len(next); i++ {
		if next[i].Time.Equal(next[i-1].Time) {
			return &weather.InputError{Field: "rows", Reason: fmt.Sprintf("duplicate timestamp %s", FormatTime(next[i].Time))}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = next
	s.location = loc
	return nil
}

// Version is the schema version the store was loaded with.
func (s *Store) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Location returns the coordinates the measurements belong to.
func (s *Store) Location() weather.Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// Size is the number of rows.
func (s *Store) Size() int {
	return s.Len()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *Store) Columns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.Columns()
}

func (s *Store) HasColumn(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.HasColumn(name)
}

// Rows returns a copy of all measurements, oldest first.
func (s *Store) Rows() []weather.Measurement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.Rows()
}

// Frame returns a snapshot of the table that is safe to query without locks.
func (s *Store) Frame() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(Frame(nil), s.rows...)
}

func (s *Store) MinTimestamp() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.MinTimestamp()
}

func (s *Store) MaxTimestamp() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.MaxTimestamp()
}

// Select returns all rows between start and end (inclusive).
func (s *Store) Select(start, end time.Time) Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.Select(start, end)
}

func (s *Store) Mean() weather.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows.Mean()
}
