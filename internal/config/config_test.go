package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("REGISTRATION_PASSWORD", "letmein")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "191", cfg.MensaID)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 8082, cfg.PushPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, time.Second, cfg.FetchPace)
	assert.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MENSA_ID", "321")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("FETCH_PACE", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "321", cfg.MensaID)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 250*time.Millisecond, cfg.FetchPace)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REGISTRATION_PASSWORD", "letmein")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadBadValues(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	require.NoError(t, err)

	cfg.HTTPPort = 0
	assert.Error(t, cfg.Validate())

	cfg.HTTPPort = 8080
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())

	cfg.LogLevel = "debug"
	cfg.JWTSecret = "short"
	assert.Error(t, cfg.Validate())
}
