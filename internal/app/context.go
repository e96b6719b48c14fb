package app

import (
	"log/slog"
	"time"

	"github.com/oggyb/sloi/internal/cache"
	"github.com/oggyb/sloi/internal/config"
	"github.com/oggyb/sloi/internal/notify"
	"github.com/oggyb/sloi/internal/photo"
	"gorm.io/gorm"
)

// AppContext holds shared dependencies (DB, Redis, Logger, notifications, etc.).
// The process entry point owns their lifecycle; services only borrow them.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Notifier   *notify.Dispatcher
	// Photos is nil when no storage backend is configured.
	Photos photo.Store

	// Now is the clock used for day boundaries, expiry and auth freshness.
	Now func() time.Time
	// Location is the reference timezone of the daily swipe counter.
	Location *time.Location
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, notifier *notify.Dispatcher) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Notifier:   notifier,
		Now:        func() time.Time { return time.Now().UTC() },
		Location:   cfg.Location(),
	}
}

// TodayStart returns the start of the current day in the reference timezone, as UTC.
func (a *AppContext) TodayStart() time.Time {
	now := a.Now().In(a.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.Location).UTC()
}

// Today formats the current reference-timezone date as 2006-01-02.
func (a *AppContext) Today() string {
	return a.Now().In(a.Location).Format("2006-01-02")
}
