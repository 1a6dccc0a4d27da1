package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mensahub/internal/menu"
)

func date(y int, m time.Month, d, hour, min int) time.Time {
	return time.Date(y, m, d, hour, min, 0, 0, time.UTC)
}

func weekWithLatest(latest string) *menu.WeekMenu {
	return &menu.WeekMenu{WeekData: []menu.DayMenu{{Date: latest}}}
}

func TestIsStale(t *testing.T) {
	tests := []struct {
		name  string
		week  *menu.WeekMenu
		today time.Time
		want  bool
	}{
		{"nil snapshot", nil, date(2026, 3, 2, 12, 0), true},
		{"empty snapshot", &menu.WeekMenu{}, date(2026, 3, 2, 12, 0), true},
		{"unparsable date", weekWithLatest("02.03.2026"), date(2026, 3, 2, 12, 0), true},
		{"today before latest", weekWithLatest("2026-03-06"), date(2026, 3, 2, 12, 0), false},
		{"today equals latest", weekWithLatest("2026-03-06"), date(2026, 3, 6, 0, 1), true},
		{"today past latest", weekWithLatest("2026-03-06"), date(2026, 3, 9, 12, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStale(tt.week, tt.today))
		})
	}
}

func TestNextScheduledRun(t *testing.T) {
	// 2026-03-02 is a Monday.
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"monday before 06:00 runs same day", date(2026, 3, 2, 5, 30), date(2026, 3, 2, 6, 0)},
		{"monday at 06:00 waits a week", date(2026, 3, 2, 6, 0), date(2026, 3, 9, 6, 0)},
		{"midweek", date(2026, 3, 4, 12, 0), date(2026, 3, 9, 6, 0)},
		{"sunday", date(2026, 3, 8, 23, 0), date(2026, 3, 9, 6, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextScheduledRun(tt.now))
		})
	}
}

func TestNextReminderRun(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"weekday before 10:00", date(2026, 3, 3, 8, 0), date(2026, 3, 3, 10, 0)},
		{"weekday after 10:00", date(2026, 3, 3, 11, 0), date(2026, 3, 4, 10, 0)},
		{"friday after 10:00 skips weekend", date(2026, 3, 6, 11, 0), date(2026, 3, 9, 10, 0)},
		{"saturday", date(2026, 3, 7, 9, 0), date(2026, 3, 9, 10, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextReminderRun(tt.now))
		})
	}
}

func TestRollingWindow(t *testing.T) {
	// Starting on a Saturday the window holds the next 7 weekdays.
	dates := RollingWindow(date(2026, 3, 7, 0, 0), 7)

	want := []string{
		"2026-03-09", "2026-03-10", "2026-03-11", "2026-03-12", "2026-03-13",
		"2026-03-16", "2026-03-17",
	}
	got := make([]string, 0, len(dates))
	for _, d := range dates {
		got = append(got, d.Format(menu.DateLayout))
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}
	assert.Equal(t, want, got)
}

func TestRollingWindowStartsOnWeekday(t *testing.T) {
	dates := RollingWindow(date(2026, 3, 4, 0, 0), 3)
	assert.Equal(t, "2026-03-04", dates[0].Format(menu.DateLayout))
	assert.Len(t, dates, 3)
}
