package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oggyb/sloi/internal/app"
)

const shutdownTimeout = 10 * time.Second

// NewRouter builds the gin engine with shared middleware, the health route
// and every registrar's routes. authMW guards the protected group.
func NewRouter(appCtx *app.AppContext, authMW gin.HandlerFunc, registrars ...Registrar) *gin.Engine {
	if appCtx.Config.App.ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware(), RecoveryMiddleware(), corsMiddleware(appCtx.Config.Telegram.WebAppURL))
	r.NoRoute(NotFoundHandler)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": appCtx.Now()})
	})

	routes := &Routes{
		Public:    api,
		Protected: api.Group("", authMW),
	}
	for _, reg := range registrars {
		reg.Register(routes)
	}
	return r
}

// StartHTTPServer serves handler until ctx is canceled, then drains
// in-flight requests.
func StartHTTPServer(ctx context.Context, appCtx *app.AppContext, handler http.Handler) error {
	addr := fmt.Sprintf("%s:%s", appCtx.Config.HTTP.Host, appCtx.Config.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appCtx.Logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server on %s: %w", addr, err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	appCtx.Logger.Info("HTTP server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// corsMiddleware allows the Mini App front end to call the API from the
// browser. Without an http(s) web app URL any origin is allowed.
func corsMiddleware(webAppURL string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if u, err := url.Parse(webAppURL); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		cfg.AllowOrigins = []string{u.Scheme + "://" + u.Host}
	} else {
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}
