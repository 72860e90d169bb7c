package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
database:
  host: db
  user: pos
  password: secret
  database: venue_pos
rabbitmq:
  host: mq
  user: guest
  password: guest
feed:
  driver: postgres
  reconnect_max: 10s
auth:
  jwt_secret: s3cret
`

func TestLoadConfigFileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, FeedPostgres, cfg.Feed.Driver)
	assert.Equal(t, 10*time.Second, cfg.Feed.ReconnectMax)
	assert.Equal(t, 500*time.Millisecond, cfg.Feed.ReconnectInitial)
	assert.Equal(t, 4, cfg.Auth.PINLength)
	assert.Equal(t, 50, cfg.Notifications.Cap)
	assert.Equal(t, 5*time.Second, cfg.Locale.GeoTimeout)
	assert.NoError(t, cfg.Validate("api-server"))
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv("DB_HOST", "override")
	t.Setenv("HTTP_PORT", "8088")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.Database.Host)
	assert.Equal(t, 8088, cfg.HTTP.Port)
}

func TestMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("DB_HOST", "envhost")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "envhost", cfg.Database.Host)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	err := cfg.Validate("api-server")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
	assert.Contains(t, err.Error(), "rabbitmq")
	assert.Contains(t, err.Error(), "jwt_secret")
}
