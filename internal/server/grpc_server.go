package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/sloi/internal/app"
	"github.com/oggyb/sloi/internal/db"
)

// HealthService is the service name health checks use for the HTTP API.
const HealthService = "sloi.api"

// HealthWatcher serves grpc_health_v1 and keeps the status in line with
// storage reachability.
type HealthWatcher struct {
	appCtx *app.AppContext
	hs     *health.Server
}

func NewHealthWatcher(appCtx *app.AppContext) *HealthWatcher {
	return &HealthWatcher{appCtx: appCtx, hs: health.NewServer()}
}

// RegisterGRPC attaches the health service.
func (w *HealthWatcher) RegisterGRPC(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, w.hs)
}

// Check pings the database and Redis once and updates the serving status.
func (w *HealthWatcher) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := db.Ping(ctx, w.appCtx.DB); err != nil {
		w.appCtx.Logger.Warn("health: database unreachable", "err", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if err := w.appCtx.RedisCache.Ping(ctx); err != nil {
		// the swipe counter falls back to the ledger, so Redis is not fatal
		w.appCtx.Logger.Warn("health: redis unreachable", "err", err)
	}

	w.hs.SetServingStatus("", status)
	w.hs.SetServingStatus(HealthService, status)
	return status
}

// Run checks every interval until ctx is done, then reports NOT_SERVING.
func (w *HealthWatcher) Run(ctx context.Context, interval time.Duration) {
	w.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.hs.Shutdown()
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// StartGRPCServer boots a gRPC server with all registrars and reflection,
// and stops it gracefully when ctx is canceled.
func StartGRPCServer(ctx context.Context, appCtx *app.AppContext, registrars ...GRPCRegistrar) error {
	addr := fmt.Sprintf("%s:%s", appCtx.Config.GRPC.Host, appCtx.Config.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()

	// register all services
	for _, r := range registrars {
		r.RegisterGRPC(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	appCtx.Logger.Info("gRPC server listening", "addr", addr)
	return grpcServer.Serve(lis)
}
