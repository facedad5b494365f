// Package query selects measurement windows relative to a reference instant.
//
// Every function takes the table to search and a timezone-aware reference
// instant and returns an ordered subset, so queries can be chained. Windows
// are compared on absolute instants: the same instant expressed in another
// UTC offset gives the same rows. Calendar windows (month, year) are built in
// the reference instant's own location, which is how "last month" follows
// the caller's local calendar.
//
// Bounds: calendar windows are inclusive on both ends, the rolling week is
// end-exclusive and LatestDatapoint ignores a row equal to the reference.
package query

import (
	"fmt"
	"time"

	"github.com/i474232898/wetter/internal/common"
	"github.com/i474232898/wetter/internal/logger"
	"github.com/i474232898/wetter/internal/store"
	"github.com/i474232898/wetter/internal/weather"
)

// Table is what the engine reads.
type Table interface {
	Select(start, end time.Time) store.Frame
	MinTimestamp() time.Time
}

// Engine runs windowed selections.
type Engine struct {
	log *logger.Logger
}

// New creates a query Engine.
func New(log *logger.Logger) *Engine {
	return &Engine{log: log.Named("query")}
}

// LatestDatapoint returns the newest row strictly before date, or an empty
// frame when nothing precedes it.
func (e *Engine) LatestDatapoint(t Table, date time.Time) (store.Frame, error) {
	if err := weather.RequireAware("date", date); err != nil {
		return nil, err
	}
	before := t.Select(t.MinTimestamp(), date).Before(date)
	if len(before) == 0 {
		e.log.Debugf("latest before %s: no rows", date.Format(time.RFC3339))
		return store.Frame{}, nil
	}
	result := before[len(before)-1:]
	e.log.Debugf("latest before %s: %s", date.Format(time.RFC3339), store.FormatTime(result[0].Time))
	return result, nil
}

// LastWeek returns the rows in [date - 7 days, date).
func (e *Engine) LastWeek(t Table, date time.Time) (store.Frame, error) {
	if err := weather.RequireAware("date", date); err != nil {
		return nil, err
	}
	start := date.AddDate(0, 0, -7)
	return e.result("last week", t.Select(start, date).Before(date)), nil
}

// LastMonth returns the full calendar month preceding date's month.
func (e *Engine) LastMonth(t Table, date time.Time) (store.Frame, error) {
	if err := weather.RequireAware("date", date); err != nil {
		return nil, err
	}
	year, month := common.PreviousMonth(date)
	start, end := common.MonthWindow(year, month, date.Location())
	return e.WindowedSelection(t, start, end)
}

// LastYear returns Jan 1 00:00:00 through Dec 31 23:59:59 of the year before
// date, both in date's location.
func (e *Engine) LastYear(t Table, date time.Time) (store.Frame, error) {
	if err := weather.RequireAware("date", date); err != nil {
		return nil, err
	}
	start, end := common.YearWindow(date.Year()-1, date.Location())
	return e.WindowedSelection(t, start, end)
}

// SpecificMonth returns a calendar month relative to date: this year's if
// the month is already over, otherwise last year's. The running month
// (month == date's month) is not over yet and resolves to last year.
func (e *Engine) SpecificMonth(t Table, date time.Time, month time.Month) (store.Frame, error) {
	if err := weather.RequireAware("date", date); err != nil {
		return nil, err
	}
	if month < time.January || month > time.December {
		return nil, &weather.InputError{Field: "month", Reason: fmt.Sprintf("%d outside 1..12", int(month))}
	}
	year := date.Year() - 1
	if month < date.Month() {
		year = date.Year()
	}
	start, end := common.MonthWindow(year, month, date.Location())
	return e.WindowedSelection(t, start, end)
}

// WindowedSelection returns the rows with start <= time <= end.
func (e *Engine) WindowedSelection(t Table, start, end time.Time) (store.Frame, error) {
	if err := weather.RequireAware("start", start); err != nil {
		return nil, err
	}
	if err := weather.RequireAware("end", end); err != nil {
		return nil, err
	}
	label := fmt.Sprintf("window %s..%s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	return e.result(label, t.Select(start, end)), nil
}

func (e *Engine) result(label string, f store.Frame) store.Frame {
	e.log.Debugf("%s: %d rows", label, len(f))
	return f
}
