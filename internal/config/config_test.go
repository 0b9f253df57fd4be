package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "./data/budget.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingSecret)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budgetwise.yaml")
	data := `
server:
  addr: ":9090"
database:
  path: /tmp/budget.db
auth:
  jwt_secret: s3cret
  token_ttl: 2h
redis:
  addr: localhost:6379
  ttl: 30s
timezone: Europe/Berlin
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/tmp/budget.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Redis.TTL)
	assert.Equal(t, "info", cfg.Log.Level, "unset keys keep defaults")
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_PATH", "/var/lib/budget.db")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("TOKEN_TTL", "15m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/budget.db", cfg.Database.Path)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("TOKEN_TTL", "soon")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := Default()
	cfg.Auth.JWTSecret = "x"
	cfg.Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
