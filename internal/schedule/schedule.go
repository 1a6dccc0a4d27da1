// Package schedule decides when the menu snapshot needs a refresh and when
// the recurring jobs run.
package schedule

import (
	"time"

	"mensahub/internal/menu"
)

// Job times, local clock.
const (
	scrapeHour   = 6
	reminderHour = 10
)

// IsStale reports whether the snapshot can no longer be trusted: absent,
// empty, carrying an unparsable date, or today has reached its latest day.
// The >= comparison refreshes on the final populated day itself, one day
// before the window runs out.
func IsStale(week *menu.WeekMenu, today time.Time) bool {
	if week == nil || len(week.WeekData) == 0 {
		return true
	}
	latest := week.LatestDate()
	if latest == "" {
		return true
	}
	latestDate, err := time.ParseInLocation(menu.DateLayout, latest, today.Location())
	if err != nil {
		// Unparsable dates force a refresh rather than silently skipping.
		return true
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	return !day.Before(latestDate)
}

// NextScheduledRun returns the next Monday 06:00 strictly after now. A
// Monday before 06:00 qualifies the same day.
func NextScheduledRun(now time.Time) time.Time {
	daysAhead := int(time.Monday-now.Weekday()+7) % 7
	candidate := time.Date(now.Year(), now.Month(), now.Day(), scrapeHour, 0, 0, 0, now.Location())
	candidate = candidate.AddDate(0, 0, daysAhead)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// NextReminderRun returns the next weekday 10:00 strictly after now,
// skipping Saturday and Sunday.
func NextReminderRun(now time.Time) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), reminderHour, 0, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	for candidate.Weekday() == time.Saturday || candidate.Weekday() == time.Sunday {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// RollingWindow returns the next n weekday dates starting at from, skipping
// Saturday and Sunday. from itself is included when it is a weekday.
func RollingWindow(from time.Time, n int) []time.Time {
	dates := make([]time.Time, 0, n)
	current := from
	for len(dates) < n {
		if current.Weekday() != time.Saturday && current.Weekday() != time.Sunday {
			dates = append(dates, current)
		}
		current = current.AddDate(0, 0, 1)
	}
	return dates
}
