package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "DATABASE_URL", "DAILY_SWIPE_LIMIT", "ADMIN_IDS", "SWIPE_RESET_TZ", "TOKEN_TTL", "JWT_SECRET", "TELEGRAM_BOT_TOKEN"} {
		t.Setenv(k, "")
	}

	cfg := New()
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "host=localhost port=5432")
	assert.Equal(t, 20, cfg.Limits.DailySwipes)
	assert.Equal(t, 100, cfg.Limits.DiscoveryWindow)
	assert.Equal(t, 500, cfg.Limits.MaxExcludedIDs)
	assert.Equal(t, 600*time.Second, cfg.Auth.FreshnessWindow)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "Europe/Moscow", cfg.Timezone)
	assert.Empty(t, cfg.Telegram.AdminIDs)
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DAILY_SWIPE_LIMIT", "5")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("ADMIN_IDS", "1, 2,bad,,3")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("LOG_SOURCE", "yes")

	cfg := New()
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "@tcp(db:3306)/")
	assert.Equal(t, 5, cfg.Limits.DailySwipes)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []int64{1, 2, 3}, cfg.Telegram.AdminIDs)
	assert.Equal(t, "123:abc", cfg.Auth.JWTSecret, "falls back to the bot token")
	assert.True(t, cfg.Log.Source)
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(4))
}

func TestNew_InvalidNumbersKeepDefaults(t *testing.T) {
	t.Setenv("DAILY_SWIPE_LIMIT", "lots")
	t.Setenv("TOKEN_TTL", "forever")

	cfg := New()
	assert.Equal(t, 20, cfg.Limits.DailySwipes)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Europe/Moscow"}
	assert.Equal(t, "Europe/Moscow", cfg.Location().String())

	cfg.Timezone = "Nowhere/Invalid"
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, cfg.Location()).Zone()
	assert.Equal(t, 3*60*60, offset)
}
