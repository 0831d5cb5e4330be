package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnvFile keeps a developer's .env out of the tests
func noEnvFile(t *testing.T) string {
	return "--env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

func TestDefaults(t *testing.T) {
	cfg, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "data/flashpod.db", cfg.DBDSN)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.True(t, cfg.EnableScheduler)
	assert.Equal(t, 8, cfg.NotificationStart)
	assert.Equal(t, 21, cfg.NotificationEnd)
	assert.Equal(t, 30, cfg.RetentionWindowDays)
	assert.Empty(t, cfg.AllowedOrigins())
}

func TestAllowedOrigins(t *testing.T) {
	cfg := Config{CORSOrigins: " http://localhost:3000, ,http://127.0.0.1:5173"}
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:5173"}, cfg.AllowedOrigins())
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flashpod.yaml")
	yaml := "db_type: postgres\ndb_dsn: postgres://file\ntz: Europe/Berlin\nretention_window_days: 14\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("DB_DSN", "postgres://env")
	t.Setenv("ENABLE_SCHEDULER", "false")
	t.Setenv("NOTIFICATION_START_HOUR", "6")

	cfg, err := Load([]string{noEnvFile(t), "--config", path, "--notification-start-hour=7"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBType)      // file
	assert.Equal(t, "Europe/Berlin", cfg.TZ)     // file
	assert.Equal(t, "postgres://env", cfg.DBDSN) // env over file
	assert.False(t, cfg.EnableScheduler)         // env over default
	assert.Equal(t, 7, cfg.NotificationStart)    // flag over env
	assert.Equal(t, 14, cfg.RetentionWindowDays) // file over default
	assert.Equal(t, ":8080", cfg.HTTPAddr)       // default
}

func TestDotEnvFile(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	require.NoError(t, os.Unsetenv("TELEGRAM_BOT_TOKEN"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TELEGRAM_BOT_TOKEN=123:abc\n"), 0o600))

	cfg, err := Load([]string{"--env-file", path})
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
}

func TestValidation(t *testing.T) {
	_, err := Load([]string{noEnvFile(t), "--db-type", "mysql"})
	assert.ErrorContains(t, err, "invalid config")

	_, err = Load([]string{noEnvFile(t), "--notification-end-hour", "24"})
	assert.Error(t, err)

	_, err = Load([]string{noEnvFile(t), "--retention-window-days", "0"})
	assert.Error(t, err)

	_, err = Load([]string{"--no-such-flag"})
	assert.Error(t, err)

	_, err = Load([]string{noEnvFile(t), "--config", filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}
