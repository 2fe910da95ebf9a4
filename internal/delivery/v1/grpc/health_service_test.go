package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/DRSN-tech/conditions-backend/internal/cfg"
	"github.com/DRSN-tech/conditions-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthService_OverGRPC(t *testing.T) {
	var dbErr error
	healthSvc := NewHealthService(func(context.Context) error { return dbErr }, logger.NewNopLogger())

	srv := NewGRPCServer(&cfg.GRPCConfig{NetworkMode: "tcp"}, logger.NewNopLogger())
	srv.RegisterServices(healthSvc)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	ctx := context.Background()
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, healthSvc.Probe(ctx))

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: SearchServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	dbErr = errors.New("pool closed")
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, healthSvc.Probe(ctx))

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: SearchServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
