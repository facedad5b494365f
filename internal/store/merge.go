package store

import (
	"sort"

	"github.com/i474232898/wetter/internal/weather"
)

// MergeStats counts what a merge changed.
type MergeStats struct {
	Added    int // timestamps not present before
	Replaced int // existing timestamps whose values came from the batch
}

// Merge concatenates existing rows with a freshly fetched batch. On equal
// timestamps the batch wins, and within the batch the later row wins. The
// result is sorted ascending, unique and in UTC.
func Merge(existing, batch []weather.Measurement) ([]weather.Measurement, MergeStats) {
	var stats MergeStats

	byTime := make(map[int64]int, len(existing)+len(batch))
	out := make([]weather.Measurement, 0, len(existing)+len(batch))

	for _, r := range existing {
		r.Time = r.Time.UTC()
		k := r.Time.UnixNano()
		if i, ok := byTime[k]; ok {
			out[i] = r
			continue
		}
		byTime[k] = len(out)
		out = append(out, r)
	}
	known := len(out)

	fromBatch := make(map[int64]bool, len(batch))
	for _, r := range batch {
		r.Time = r.Time.UTC()
		k := r.Time.UnixNano()
		if i, ok := byTime[k]; ok {
			if i < known && !fromBatch[k] {
				stats.Replaced++
			}
			out[i] = r
		} else {
			byTime[k] = len(out)
			out = append(out, r)
			stats.Added++
		}
		fromBatch[k] = true
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, stats
}
