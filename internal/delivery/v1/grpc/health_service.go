package grpc

import (
	"context"
	"time"

	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// SearchServiceName - имя сервиса в grpc.health.v1.
const SearchServiceName = "conditions.v1.Search"

// CheckFunc проверяет зависимость сервиса (например, пул PostgreSQL).
type CheckFunc func(ctx context.Context) error

// HealthService публикует состояние поиска через стандартный grpc health protocol.
type HealthService struct {
	server *health.Server
	check  CheckFunc
	logger logger.Logger
}

func NewHealthService(check CheckFunc, logger logger.Logger) *HealthService {
	return &HealthService{
		server: health.NewServer(),
		check:  check,
		logger: logger,
	}
}

// Probe выполняет одну проверку и обновляет статус.
func (h *HealthService) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.check(ctx); err != nil {
		h.logger.Warnf("health check failed: %v", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	h.server.SetServingStatus(SearchServiceName, status)
	h.server.SetServingStatus("", status)
	return status
}

// Watch проверяет зависимость каждые interval, пока не отменён ctx.
func (h *HealthService) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

// Shutdown переводит все сервисы в NOT_SERVING перед остановкой сервера.
func (h *HealthService) Shutdown() {
	h.server.Shutdown()
}
