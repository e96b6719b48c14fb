package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// LogConfig configures the global slog logger.
type LogConfig struct {
	Level     string
	Format    string
	Component string
	Source    bool
}

type Config struct {
	App struct {
		ENV string
	}

	Log LogConfig

	DB struct {
		Driver   string // postgres | mysql
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	GRPC struct {
		Host string
		Port string
	}

	Telegram struct {
		BotToken  string
		WebAppURL string
		AdminIDs  []int64
	}

	Supabase struct {
		URL         string
		Key         string
		PhotoBucket string
	}

	// Storage is the local photo fallback used when Supabase is not configured.
	Storage struct {
		LocalDir      string
		PublicBaseURL string
	}

	Auth struct {
		JWTSecret       string
		TokenTTL        time.Duration
		FreshnessWindow time.Duration
	}

	Limits struct {
		DailySwipes      int
		DiscoveryWindow  int
		MaxExcludedIDs   int
		PremiumGrantDays int
		PremiumStars     int
	}

	// Timezone anchors the daily swipe counter reset.
	Timezone string
}

// New reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "sloi_api")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "postgres"))
	cfg.DB.DSN = os.Getenv("DATABASE_URL")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.User = getEnvDefault("DB_USER", "postgres")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "postgres")
		cfg.DB.Name = getEnvDefault("DB_NAME", "sloi")

		switch cfg.DB.Driver {
		case "mysql":
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		default:
			cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
			cfg.DB.SSLMode = getEnvDefault("DB_SSLMODE", "require")
			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("PORT", "5001")

	// gRPC (health checks only)
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Telegram
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.WebAppURL = getEnvDefault("WEBAPP_URL", "https://sloi-frontend.onrender.com")
	cfg.Telegram.AdminIDs = parseIDs(os.Getenv("ADMIN_IDS"))

	// Supabase storage
	cfg.Supabase.URL = os.Getenv("SUPABASE_URL")
	cfg.Supabase.Key = os.Getenv("SUPABASE_KEY")
	cfg.Supabase.PhotoBucket = getEnvDefault("SUPABASE_PHOTO_BUCKET", "photos")

	cfg.Storage.LocalDir = getEnvDefault("UPLOADS_DIR", "uploads")
	cfg.Storage.PublicBaseURL = getEnvDefault("UPLOADS_BASE_URL", "http://localhost:"+cfg.HTTP.Port+"/uploads")

	// Auth
	cfg.Auth.JWTSecret = getEnvDefault("JWT_SECRET", cfg.Telegram.BotToken)
	cfg.Auth.TokenTTL = getEnvDuration("TOKEN_TTL", 7*24*time.Hour)
	cfg.Auth.FreshnessWindow = getEnvDuration("AUTH_FRESHNESS_WINDOW", 600*time.Second)

	// Limits
	cfg.Limits.DailySwipes = getEnvInt("DAILY_SWIPE_LIMIT", 20)
	cfg.Limits.DiscoveryWindow = getEnvInt("DISCOVERY_WINDOW", 100)
	cfg.Limits.MaxExcludedIDs = getEnvInt("DISCOVERY_MAX_EXCLUDED_IDS", 500)
	cfg.Limits.PremiumGrantDays = getEnvInt("PREMIUM_GRANT_DAYS", 30)
	cfg.Limits.PremiumStars = getEnvInt("PREMIUM_PRICE_STARS", 150)

	cfg.Timezone = getEnvDefault("SWIPE_RESET_TZ", "Europe/Moscow")

	return cfg
}

// IsAdmin reports whether the Telegram user id is listed in ADMIN_IDS.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// Location resolves the reference timezone. Falls back to a fixed UTC+3 zone
// when tzdata is unavailable.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
