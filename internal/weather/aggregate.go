package weather

import (
	"sort"
	"time"
)

// Summary is the average of a set of measurements.
type Summary struct {
	Count       int       `json:"count"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Temperature float64   `json:"temperature"`
	Wind        float64   `json:"wind"`
}

// Average combines multiple measurements into a single Summary.
// Numeric fields are averaged; From/To span the oldest and newest reading.
func Average(rows []Measurement) Summary {
	if len(rows) == 0 {
		return Summary{}
	}

	var sumTemp, sumWind float64
	from, to := rows[0].Time, rows[0].Time

	for _, r := range rows {
		sumTemp += r.Temperature
		sumWind += r.Wind

		if r.Time.Before(from) {
			from = r.Time
		}
		if r.Time.After(to) {
			to = r.Time
		}
	}

	n := float64(len(rows))
	return Summary{
		Count:       len(rows),
		From:        from,
		To:          to,
		Temperature: sumTemp / n,
		Wind:        sumWind / n,
	}
}

// DailyAverages groups measurements by calendar day in loc and averages each
// day. The result is ordered by day ascending; From is local midnight.
func DailyAverages(rows []Measurement, loc *time.Location) []Summary {
	if loc == nil {
		loc = time.UTC
	}

	byDay := make(map[string][]Measurement)
	days := make(map[string]time.Time)
	for _, r := range rows {
		ts := r.Time.In(loc)
		k := ts.Format(time.DateOnly)
		byDay[k] = append(byDay[k], r)
		if _, ok := days[k]; !ok {
			days[k] = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
		}
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		s := Average(byDay[k])
		s.From = days[k]
		s.To = days[k].AddDate(0, 0, 1).Add(-time.Second)
		out = append(out, s)
	}
	return out
}
