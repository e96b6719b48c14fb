package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v3"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/bot"
	"github.com/oggyb/sloi/internal/cache"
	"github.com/oggyb/sloi/internal/config"
	"github.com/oggyb/sloi/internal/db"
	"github.com/oggyb/sloi/internal/logger"
	"github.com/oggyb/sloi/internal/notify"
	"github.com/oggyb/sloi/internal/payments"
	"github.com/oggyb/sloi/internal/photo"
	"github.com/oggyb/sloi/internal/server"
	"github.com/oggyb/sloi/internal/service/auth"
	"github.com/oggyb/sloi/internal/service/discovery"
	"github.com/oggyb/sloi/internal/service/match"
	"github.com/oggyb/sloi/internal/service/moderation"
	"github.com/oggyb/sloi/internal/service/profile"
	"github.com/oggyb/sloi/internal/service/swipe"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	// Telegram bot: notifications, /start and payments. Optional in development.
	var (
		tb     *tele.Bot
		sender notify.Sender = notify.NopSender{}
	)
	if cfg.Telegram.BotToken != "" {
		onError := func(err error, _ tele.Context) {
			log.Error("telegram update failed", "err", err)
		}
		tb, err = tele.NewBot(tele.Settings{
			Token:   cfg.Telegram.BotToken,
			Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
			OnError: onError,
		})
		if err != nil {
			log.Error("failed to init telegram bot", "err", err)
			os.Exit(1)
		}
		sender = notify.NewTelegramSender(tb, cfg.Telegram.WebAppURL)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN is empty: auth will fail and notifications are disabled")
	}
	notifier := notify.NewDispatcher(sender, log)

	appCtx := app.New(cfg, database, redisCache, log, notifier)

	var serveUploads bool
	if cfg.Supabase.URL != "" {
		store, err := photo.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.PhotoBucket)
		if err != nil {
			log.Error("failed to init photo storage", "err", err)
			os.Exit(1)
		}
		appCtx.Photos = store
	} else if cfg.App.ENV == "development" {
		appCtx.Photos = &photo.LocalStore{Dir: cfg.Storage.LocalDir, BaseURL: cfg.Storage.PublicBaseURL}
		serveUploads = true
	}

	// a nil *tele.Bot must not become a non-nil LinkCreator
	var links payments.LinkCreator
	if tb != nil {
		links = tb
	}

	registrars := []server.Registrar{
		auth.NewRegistrar(appCtx),
		discovery.NewRegistrar(appCtx),
		swipe.NewRegistrar(appCtx),
		match.NewRegistrar(appCtx),
		profile.NewRegistrar(appCtx),
		moderation.NewRegistrar(appCtx),
		payments.NewRegistrar(appCtx, links),
	}
	router := server.NewRouter(appCtx, auth.Middleware(appCtx), registrars...)
	if serveUploads {
		router.Static("/uploads", cfg.Storage.LocalDir)
	}

	if cfg.App.ENV == "development" && os.Getenv("SEED_ON_START") != "" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	health := server.NewHealthWatcher(appCtx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.StartHTTPServer(gctx, appCtx, router)
	})
	g.Go(func() error {
		return server.StartGRPCServer(gctx, appCtx, health)
	})
	g.Go(func() error {
		health.Run(gctx, 15*time.Second)
		return nil
	})
	if tb != nil {
		b := bot.New(appCtx, tb)
		g.Go(func() error {
			b.Run(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "err", err)
	}

	// let in-flight notifications finish
	notifier.Wait()
	log.Info("shutdown complete")
}
