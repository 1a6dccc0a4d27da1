package command

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mensahub/internal/httpapi"
	"mensahub/internal/notify"
	"mensahub/internal/push"
	"mensahub/internal/schedule"
)

// pushSessionTimeout is how long a push subscriber stays registered
// without a keep-alive ping.
const pushSessionTimeout = 30 * time.Minute

// serveCmd runs the full service: HTTP API, UDP push delivery and the
// scrape/notify scheduler.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API, push delivery and scheduler",
	Long: `Start the long-running service. On boot the menu snapshot is refreshed
if missing or stale, then the weekly scrape and the daily reminder pass run
on their own schedule while the HTTP API serves subscribers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()
		return runServe(a)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pusher, err := push.NewServer(a.cfg.PushPort, pushSessionTimeout, a.log)
	if err != nil {
		return fmt.Errorf("starting push server: %w", err)
	}
	pusher.Start()
	defer pusher.Shutdown()

	engine := notify.NewEngine(a.menus, a.users, pusher, a.log)

	if err := refreshIfStale(ctx, a, engine); err != nil {
		return err
	}

	nextScrape := schedule.NextScheduledRun(time.Now())
	a.log.Info("scheduler armed",
		zap.Time("next_scrape", nextScrape),
		zap.Time("next_reminder", schedule.NextReminderRun(time.Now())))
	notifyAdmin(ctx, a, pusher, nextScrape)

	go scrapeLoop(ctx, a, engine)
	go reminderLoop(ctx, a, engine)

	auth, err := httpapi.NewAuth(a.cfg.JWTSecret, a.cfg.RegistrationPassword, a.cfg.JWTExpiry)
	if err != nil {
		return err
	}
	profiles := httpapi.NewProfileService(a.users, a.tables, a.cfg.AdminID)
	menus := httpapi.NewMenuService(a.menus, a.users, a.evaluator)
	handler := httpapi.NewHandler(auth, profiles, menus, engine, a.scraper, a.tables, a.log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler: handler.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http api listening", zap.Int("port", a.cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// refreshIfStale scrapes at boot when the stored snapshot no longer covers
// the current day, then runs a match pass over the fresh data.
func refreshIfStale(ctx context.Context, a *app, engine *notify.Engine) error {
	week, err := a.menus.Load()
	if err != nil {
		return fmt.Errorf("loading menu snapshot: %w", err)
	}
	if !schedule.IsStale(week, time.Now()) {
		a.log.Info("snapshot current", zap.String("latest", week.LatestDate()))
		return nil
	}

	a.log.Info("snapshot missing or stale, scraping")
	fresh, err := a.scraper.ScrapeWeek(ctx)
	if err != nil {
		return fmt.Errorf("startup scrape: %w", err)
	}
	a.log.Info("startup scrape done", zap.Int("days", len(fresh.WeekData)))
	return engine.RunMatchPass(ctx)
}

// notifyAdmin tells the configured admin when the next scheduled scrape
// runs. Best effort: the admin may not be subscribed yet.
func notifyAdmin(ctx context.Context, a *app, messenger notify.Messenger, next time.Time) {
	if a.cfg.AdminID == "" {
		return
	}
	text := fmt.Sprintf("Service started. Next scheduled menu fetch: %s.",
		next.Format("Monday, Jan 02 at 15:04"))
	if err := messenger.Send(ctx, a.cfg.AdminID, text, nil); err != nil {
		a.log.Debug("admin startup notice not delivered", zap.Error(err))
	}
}

// scrapeLoop runs the weekly scrape+match cycle.
func scrapeLoop(ctx context.Context, a *app, engine *notify.Engine) {
	for {
		next := schedule.NextScheduledRun(time.Now())
		if !sleepUntil(ctx, next) {
			return
		}

		week, err := a.scraper.ScrapeWeek(ctx)
		if err != nil {
			a.log.Error("scheduled scrape failed", zap.Error(err))
			continue
		}
		a.log.Info("scheduled scrape done", zap.Int("days", len(week.WeekData)))

		if err := engine.RunMatchPass(ctx); err != nil {
			a.log.Error("match pass failed", zap.Error(err))
		}
	}
}

// reminderLoop runs the weekday reminder pass.
func reminderLoop(ctx context.Context, a *app, engine *notify.Engine) {
	for {
		next := schedule.NextReminderRun(time.Now())
		if !sleepUntil(ctx, next) {
			return
		}
		if err := engine.RunReminderPass(ctx); err != nil {
			a.log.Error("reminder pass failed", zap.Error(err))
		}
	}
}

// sleepUntil blocks until t or context cancellation; reports whether the
// deadline was reached.
func sleepUntil(ctx context.Context, t time.Time) bool {
	timer := time.NewTimer(time.Until(t))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
