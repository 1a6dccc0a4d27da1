package scrape

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mensahub/internal/menu"
	"mensahub/internal/schedule"
	"mensahub/internal/store"
)

// windowDays is the number of weekday dates covered by one snapshot.
const windowDays = 7

// Scraper assembles the rolling weekly snapshot: one fetch+extract per
// weekday date, paced by a rate limiter out of politeness to the upstream
// host. Per-day failures are logged and the day skipped; only persisting
// the finished week can fail the run.
type Scraper struct {
	mensaName string
	fetcher   Fetcher
	extractor *Extractor
	menus     store.MenuStore
	limiter   *rate.Limiter
	log       *zap.Logger
	now       func() time.Time
}

// NewScraper wires a Scraper. The pace limiter may be nil to disable
// pacing (tests).
func NewScraper(mensaName string, fetcher Fetcher, extractor *Extractor, menus store.MenuStore, limiter *rate.Limiter, log *zap.Logger) *Scraper {
	return &Scraper{
		mensaName: mensaName,
		fetcher:   fetcher,
		extractor: extractor,
		menus:     menus,
		limiter:   limiter,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the scraper's clock. Tests use it to pin the rolling
// window.
func (s *Scraper) WithClock(now func() time.Time) *Scraper {
	s.now = now
	return s
}

// ScrapeWeek fetches the next 7 weekday dates, extracts each day and
// persists the assembled WeekMenu atomically. Days that fail to fetch or
// parse, and days without any non-empty category, are omitted. The
// resulting week is ordered by ascending date.
func (s *Scraper) ScrapeWeek(ctx context.Context) (menu.WeekMenu, error) {
	today := s.now()
	week := menu.WeekMenu{Mensa: s.mensaName}

	dates := schedule.RollingWindow(today, windowDays)
	s.log.Info("scraping rolling window",
		zap.String("mensa", s.mensaName),
		zap.String("from", dates[0].Format(menu.DateLayout)),
		zap.String("to", dates[len(dates)-1].Format(menu.DateLayout)))

	for _, date := range dates {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return week, fmt.Errorf("waiting for request pacing: %w", err)
			}
		}

		day, err := s.scrapeDay(ctx, date)
		if err != nil {
			s.log.Warn("day unavailable",
				zap.String("date", date.Format(menu.DateLayout)), zap.Error(err))
			continue
		}
		if day.IsEmpty() {
			s.log.Info("no menu published", zap.String("date", day.Date))
			continue
		}
		week.WeekData = append(week.WeekData, day)
	}

	if err := s.menus.Save(week); err != nil {
		return week, fmt.Errorf("persisting week snapshot: %w", err)
	}

	s.log.Info("scrape complete",
		zap.Int("days", len(week.WeekData)),
		zap.Int("meals", countMeals(week)))
	return week, nil
}

func (s *Scraper) scrapeDay(ctx context.Context, date time.Time) (menu.DayMenu, error) {
	markup, err := s.fetcher.FetchDay(ctx, date)
	if err != nil {
		return menu.DayMenu{}, err
	}
	return s.extractor.ExtractDay(markup, date)
}

func countMeals(week menu.WeekMenu) int {
	total := 0
	for _, day := range week.WeekData {
		for _, cat := range day.Categories {
			total += len(cat.Meals)
		}
	}
	return total
}
