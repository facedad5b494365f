package common

import "time"

// MonthWindow returns the first and the last second of a calendar month in loc.
func MonthWindow(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0).Add(-time.Second)
}

// YearWindow returns Jan 1 00:00:00 and Dec 31 23:59:59 of year in loc.
func YearWindow(year int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0).Add(-time.Second)
}

// PreviousMonth returns the calendar month before the one t falls in.
func PreviousMonth(t time.Time) (int, time.Month) {
	if t.Month() == time.January {
		return t.Year() - 1, time.December
	}
	return t.Year(), t.Month() - 1
}

// DaysIn returns the number of days of a calendar month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
