package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestCriticalComponentDecidesHealth(t *testing.T) {
	checker := NewChecker(nil, time.Minute)
	dbErr := errors.New("connection refused")
	checker.RegisterDatabaseCheck(func(context.Context) error { return dbErr })
	checker.RegisterCacheCheck("redis", func(context.Context) error { return errors.New("timeout") })

	checker.RunChecks(context.Background())
	assert.False(t, checker.IsSystemHealthy())

	status := checker.GetStatus()
	assert.Equal(t, StatusDown, status["database"].Status)
	assert.Equal(t, "connection refused", status["database"].Error)
	assert.Equal(t, StatusDegraded, status["redis"].Status)

	dbErr = nil
	checker.RunChecks(context.Background())
	assert.True(t, checker.IsSystemHealthy(), "a degraded cache is not fatal")
}

func TestHTTPHandler(t *testing.T) {
	checker := NewChecker(nil, time.Minute)
	checker.RegisterDatabaseCheck(func(context.Context) error { return nil })
	checker.RunChecks(context.Background())

	rec := httptest.NewRecorder()
	checker.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body["components"], "database")
}

func TestGRPCHealthFollowsChecker(t *testing.T) {
	checker := NewChecker(nil, time.Minute)
	healthy := true
	checker.RegisterDatabaseCheck(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	})
	srv := NewGRPCServer(checker, "greenhouse.Backend", nil)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Server().Serve(lis) }()
	t.Cleanup(srv.Server().Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	client := healthpb.NewHealthClient(conn)
	ctx := context.Background()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "greenhouse.Backend"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status, "not checked yet")

	checker.RunChecks(ctx)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "greenhouse.Backend"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	healthy = false
	checker.RunChecks(ctx)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
