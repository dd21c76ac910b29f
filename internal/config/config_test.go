package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultPGHost, cfg.Postgres.Host)
	assert.Equal(t, DefaultPGPort, cfg.Postgres.Port)
	assert.Equal(t, DefaultUploadsDir, cfg.Uploads.Dir)
	assert.Equal(t, DefaultJWTExpiresIn, cfg.Auth.JWTExpiresIn)
	assert.Equal(t, DefaultGatewayTimeout, cfg.Evolution.TimeoutSeconds)
	assert.Equal(t, DefaultCalendarTimezone, cfg.Calendar.Timezone)
	assert.Empty(t, cfg.Calendar.CalendarID)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
level = "debug"
format = "json"

[server]
addr = ":9090"

[postgres]
host = "db.internal"
port = 5433
user = "advocrm"
password = "secret"
database = "advocrm"

[evolution]
base_url = "http://evolution:8080"
api_key = "chave"
timeout_seconds = 10

[calendar]
calendar_id = "firm@group.calendar.google.com"
token = "ya29.token"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 5433, cfg.Postgres.Port)
	assert.Equal(t, "http://evolution:8080", cfg.Evolution.BaseURL)
	assert.Equal(t, "chave", cfg.Evolution.APIKey)
	assert.Equal(t, 10, cfg.Evolution.TimeoutSeconds)
	assert.Equal(t, "firm@group.calendar.google.com", cfg.Calendar.CalendarID)
	assert.Equal(t, DefaultCalendarTimezone, cfg.Calendar.Timezone)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, DefaultUploadsDir, cfg.Uploads.Dir)
	assert.Equal(t, DefaultPGSSLMode, cfg.Postgres.SSLMode)
}

func TestLoadMalformedFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
