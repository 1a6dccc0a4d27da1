package command

// root.go defines the root command for the mensahub binary and the shared
// bootstrap every subcommand goes through.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"mensahub/internal/config"
	"mensahub/internal/eligibility"
	"mensahub/internal/lookup"
	"mensahub/internal/scrape"
	"mensahub/internal/store"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mensahub",
	Short: "mensahub - cafeteria menu scraper and notification service",
	Long: `mensahub scrapes the weekly cafeteria menu, persists it as a rolling
snapshot and notifies registered subscribers when their watched keywords
show up on the menu.

Use "mensahub command -h" to see all available commands.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wiring shared by all subcommands.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	tables    *lookup.Tables
	menus     store.MenuStore
	users     store.UserStore
	evaluator *eligibility.Evaluator
	scraper   *scrape.Scraper
}

// loadApp loads configuration and wires the core components.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	tables, err := lookup.Load(cfg.LookupFile)
	if err != nil {
		log.Warn("lookup tables unavailable, falling back to raw codes", zap.Error(err))
	}

	menus := store.NewMenuStore(cfg.MenuDataFile)
	users := store.NewUserStore(cfg.UserDataFile)

	limiter := rate.NewLimiter(rate.Every(cfg.FetchPace), 1)
	client := scrape.NewClient(cfg.AjaxURL, cfg.MensaID, cfg.FetchTimeout)
	extractor := scrape.NewExtractor(tables)
	scraper := scrape.NewScraper(cfg.MensaName, client, extractor, menus, limiter, log)

	return &app{
		cfg:       cfg,
		log:       log,
		tables:    tables,
		menus:     menus,
		users:     users,
		evaluator: eligibility.New(tables),
		scraper:   scraper,
	}, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
