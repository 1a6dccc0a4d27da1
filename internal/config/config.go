// Package config loads service configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Upstream source
	MensaID   string `env:"MENSA_ID" default:"191"`
	MensaName string `env:"MENSA_NAME" default:"Mensa"`
	AjaxURL   string `env:"AJAX_URL" default:"https://www.stw.berlin/xhr/speiseplan-wochentag.html"`

	// Documents
	LookupFile   string `env:"LOOKUP_FILE" default:"lookup_tables.json"`
	MenuDataFile string `env:"MENU_DATA_FILE" default:"mensa_menu.json"`
	UserDataFile string `env:"USER_DATA_FILE" default:"user_data.json"`

	// Service ports
	HTTPPort int `env:"HTTP_PORT" default:"8080"`
	PushPort int `env:"PUSH_PORT" default:"8082"`

	// Authentication
	JWTSecret            string        `env:"JWT_SECRET" required:"true"`
	JWTExpiry            time.Duration `env:"JWT_EXPIRY" default:"24h"`
	RegistrationPassword string        `env:"REGISTRATION_PASSWORD" required:"true"`
	AdminID              string        `env:"ADMIN_ID"`

	// Scraping
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" default:"10s"`
	FetchPace    time.Duration `env:"FETCH_PACE" default:"1s"`

	// Development
	LogLevel string `env:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment. A missing .env file is
// fine; system environment variables still apply.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		// Not an error: containerized deployments set real env vars.
		fmt.Fprintf(os.Stderr, "warning: .env file not loaded: %v\n", err)
	}

	cfg := &Config{}

	loadEnvString(&cfg.MensaID, "MENSA_ID", "191")
	loadEnvString(&cfg.MensaName, "MENSA_NAME", "Mensa")
	loadEnvString(&cfg.AjaxURL, "AJAX_URL", "https://www.stw.berlin/xhr/speiseplan-wochentag.html")

	loadEnvString(&cfg.LookupFile, "LOOKUP_FILE", "lookup_tables.json")
	loadEnvString(&cfg.MenuDataFile, "MENU_DATA_FILE", "mensa_menu.json")
	loadEnvString(&cfg.UserDataFile, "USER_DATA_FILE", "user_data.json")

	if err := loadEnvInt(&cfg.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&cfg.PushPort, "PUSH_PORT", 8082); err != nil {
		return nil, err
	}

	if err := loadEnvStringRequired(&cfg.JWTSecret, "JWT_SECRET"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&cfg.JWTExpiry, "JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}
	if err := loadEnvStringRequired(&cfg.RegistrationPassword, "REGISTRATION_PASSWORD"); err != nil {
		return nil, err
	}
	loadEnvString(&cfg.AdminID, "ADMIN_ID", "")

	if err := loadEnvDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&cfg.FetchPace, "FETCH_PACE", time.Second); err != nil {
		return nil, err
	}

	loadEnvString(&cfg.LogLevel, "LOG_LEVEL", "info")

	return cfg, nil
}

// Validate performs validation on the loaded configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, "HTTP_PORT must be between 1 and 65535")
	}
	if c.PushPort < 1 || c.PushPort > 65535 {
		errs = append(errs, "PUSH_PORT must be between 1 and 65535")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET should be at least 32 characters long")
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, "FETCH_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func loadEnvString(target *string, key, defaultValue string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
}

func loadEnvStringRequired(target *string, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return fmt.Errorf("required environment variable %s is not set", key)
	}
	*target = value
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
