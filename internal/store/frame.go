package store

import (
	"sort"
	"time"

	"github.com/i474232898/wetter/internal/weather"
)

// Table is the narrow read interface shared by the store and query results.
type Table interface {
	Len() int
	Columns() []string
	HasColumn(name string) bool
	Rows() []weather.Measurement
	MinTimestamp() time.Time
	MaxTimestamp() time.Time
	Select(start, end time.Time) Frame
	Mean() weather.Summary
}

// Frame is an ordered (ascending, unique) slice of measurements.
type Frame []weather.Measurement

var _ Table = Frame(nil)

func (f Frame) Len() int { return len(f) }

func (f Frame) Columns() []string {
	return append([]string(nil), weather.Columns...)
}

func (f Frame) HasColumn(name string) bool {
	return name == weather.ColumnTemperature || name == weather.ColumnWind
}

// Rows returns a copy of the frame's measurements.
func (f Frame) Rows() []weather.Measurement {
	return append([]weather.Measurement(nil), f...)
}

// MinTimestamp returns the oldest timestamp, or the zero time for an empty frame.
func (f Frame) MinTimestamp() time.Time {
	if len(f) == 0 {
		return time.Time{}
	}
	return f[0].Time
}

// MaxTimestamp returns the newest timestamp, or the zero time for an empty frame.
func (f Frame) MaxTimestamp() time.Time {
	if len(f) == 0 {
		return time.Time{}
	}
	return f[len(f)-1].Time
}

// Select returns the rows with start <= time <= end.
func (f Frame) Select(start, end time.Time) Frame {
	lo := sort.Search(len(f), func(i int) bool { return !f[i].Time.Before(start) })
	hi := sort.Search(len(f), func(i int) bool { return f[i].Time.After(end) })
	if lo >= hi {
		return Frame{}
	}
	return append(Frame(nil), f[lo:hi]...)
}

// Before returns the rows strictly before t.
func (f Frame) Before(t time.Time) Frame {
	hi := sort.Search(len(f), func(i int) bool { return !f[i].Time.Before(t) })
	return append(Frame(nil), f[:hi]...)
}

func (f Frame) Mean() weather.Summary {
	return weather.Average(f)
}
