package main

import (
	"fmt"
	"io"
	"time"

	"github.com/i474232898/wetter/internal/common"
	"github.com/i474232898/wetter/internal/store"
	"github.com/i474232898/wetter/internal/weather"
)

const notEnoughData = "Unfortunately there are not enough data points.\nPlease consider updating the database: `wetter update%s`\n"

func printLatest(w io.Writer, latest store.Frame, loc *time.Location) {
	if len(latest) == 0 {
		fmt.Fprintf(w, notEnoughData, "")
		return
	}
	m := latest[0]
	fmt.Fprintf(w, "Currently it is 🌡️ %.1f°C and wind speed 🌬️ %.1f km/h.\n", m.Temperature, m.Wind)

	ts := m.Time.In(loc)
	fmt.Fprintf(w, "Latest measurement on 📅 %s @ %s.\n", ts.Format(time.DateOnly), ts.Format("03:04PM"))
}

// relation describes how the window average compares to now.
func relation(diff float64) string {
	switch {
	case diff < 0:
		return "colder"
	case diff > 0:
		return "warmer"
	default:
		return "same"
	}
}

func printComparison(w io.Writer, latest, window store.Frame, mode string, loc *time.Location) {
	if len(latest) == 0 || len(window) == 0 {
		hint := ""
		if mode == "year" {
			hint = " --historical"
		}
		fmt.Fprintf(w, notEnoughData, hint)
		return
	}

	avg := window.Mean().Temperature
	now := latest[0].Temperature
	diff := avg - now
	fmt.Fprintf(w, "It was on average %.1f°C %s last %s (%.1f°C) than today (%.1f°C).\n", diff, relation(diff), mode, avg, now)
	printWindowDisclaimer(w, window, loc)
}

// printDetailed reports a month's average and the days that were hotter.
func printDetailed(w io.Writer, window store.Frame, loc *time.Location) {
	if len(window) == 0 {
		fmt.Fprintf(w, notEnoughData, " --historical")
		return
	}

	overall := window.Mean().Temperature
	days := weather.DailyAverages(window, loc)

	var hotter []weather.Summary
	for _, d := range days {
		if d.Temperature > overall {
			hotter = append(hotter, d)
		}
	}

	first := window[0].Time.In(loc)
	fmt.Fprintf(w, "It was on average 🌡️ %.1f°C in 📅 %s.\n", overall, first.Format("January 2006"))
	fmt.Fprintf(w, "The following %d days were hotter 🔥 than the average:\n", len(hotter))
	for _, d := range hotter {
		fmt.Fprintf(w, "%s @ %.1f°C\n", d.From.Format(time.DateOnly), d.Temperature)
	}
	if total := common.DaysIn(first.Year(), first.Month()); len(days) < total {
		fmt.Fprintf(w, "Only %d of %d days have measurements.\n", len(days), total)
	}
	printWindowDisclaimer(w, window, loc)
}

func printWindowDisclaimer(w io.Writer, window store.Frame, loc *time.Location) {
	start := window.MinTimestamp().In(loc).Format(time.DateOnly)
	end := window.MaxTimestamp().In(loc).Format(time.DateOnly)
	fmt.Fprintf(w, "Average was calculated using #%d measurements between 📅 %s - %s.\n", len(window), start, end)
}
