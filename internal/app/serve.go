package app

import (
	"context"
	"errors"
	"time"

	v1Grpc "github.com/DRSN-tech/conditions-backend/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/conditions-backend/internal/delivery/v1/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const healthInterval = 15 * time.Second

// RunServe поднимает HTTP API поиска, gRPC health и outbox-воркер и ждёт отмены ctx.
func (a *App) RunServe(ctx context.Context) error {
	searchUC := a.SearchUC()

	health := v1Grpc.NewHealthService(a.db.Ping, a.logger)
	grpcSrv := v1Grpc.NewGRPCServer(a.cfg.Grpc, a.logger)
	grpcSrv.RegisterServices(health)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go health.Watch(watchCtx, healthInterval)

	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := grpcSrv.Start(); err != nil {
			a.logger.Errorf(err, "gRPC server failed")
			grpcErrCh <- err
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	router := v1Http.NewRouter(r, a.logger)
	router.Init(searchUC, a.cfg.Search.Threshold, a.cfg.Search.Limit)

	httpSrv := v1Http.NewServer(r, a.cfg.Http)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := httpSrv.Run(); err != nil {
			a.logger.Errorf(err, "HTTP server failed")
			errCh <- err
		}
	}()

	if a.outboxWorker != nil {
		a.outboxWorker.Start(ctx)
	}

	// === Ожидание сигнала или ошибки ===
	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	health.Shutdown()

	if err := httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := grpcSrv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		a.logger.Errorf(err, "gRPC server shutdown error")
	}

	if a.outboxWorker != nil {
		a.outboxWorker.Stop()
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}
