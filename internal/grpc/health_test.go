package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/bookstore/storefront/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

type fakePinger struct{ err error }

func (f fakePinger) Ping() error { return f.err }

type fakeReporter struct{ healthy bool }

func (f fakeReporter) IsHealthy() bool { return f.healthy }

func setupHealthClient(t *testing.T, hs *HealthServer) grpc_health_v1.HealthClient {
	lis := bufconn.Listen(bufSize)
	server := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zap.NewNop())))
	grpc_health_v1.RegisterHealthServer(server, hs)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return grpc_health_v1.NewHealthClient(conn)
}

func TestHealthCheck(t *testing.T) {
	database, err := db.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	tests := []struct {
		name      string
		db        Pinger
		publisher Reporter
		want      grpc_health_v1.HealthCheckResponse_ServingStatus
	}{
		{"sqlite without messaging", database, nil, grpc_health_v1.HealthCheckResponse_SERVING},
		{"publisher up", fakePinger{}, fakeReporter{healthy: true}, grpc_health_v1.HealthCheckResponse_SERVING},
		{"publisher down", fakePinger{}, fakeReporter{healthy: false}, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
		{"database down", fakePinger{err: errors.New("closed")}, nil, grpc_health_v1.HealthCheckResponse_NOT_SERVING},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupHealthClient(t, NewHealthServer(tt.db, tt.publisher, zap.NewNop()))
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.GetStatus())
		})
	}
}

func TestHealthWatchSendsCurrentStatus(t *testing.T) {
	client := setupHealthClient(t, NewHealthServer(fakePinger{}, nil, zap.NewNop()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.Watch(ctx, &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	resp, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestReport(t *testing.T) {
	hs := NewHealthServer(fakePinger{}, fakeReporter{healthy: false}, zap.NewNop())
	assert.Equal(t, "rabbitmq connection failed", hs.Report())
	assert.Equal(t, "", NewHealthServer(fakePinger{}, nil, zap.NewNop()).Report())
}
