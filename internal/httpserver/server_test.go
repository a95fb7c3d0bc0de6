package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/streamward/internal/domain"
	"github.com/pscheid92/streamward/internal/platform/config"
	wshub "github.com/pscheid92/streamward/internal/websocket"
)

// mockRedisClient provides a minimal mock for health check testing.
type mockRedisClient struct {
	pingErr error
}

func (m *mockRedisClient) Ping(ctx context.Context) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx)
	if m.pingErr != nil {
		cmd.SetErr(m.pingErr)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

type mockPgxPool struct {
	pingErr error
}

func (m *mockPgxPool) Ping(ctx context.Context) error {
	return m.pingErr
}

type stubUserRepo struct {
	users map[string]*domain.User
}

func (s *stubUserRepo) GetByID(_ context.Context, broadcasterID string) (*domain.User, error) {
	user, ok := s.users[broadcasterID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *stubUserRepo) UpdateTokens(context.Context, string, string, string, time.Time) error {
	return nil
}

func newTestServer(t *testing.T, redis *mockRedisClient, postgres *mockPgxPool) (*Server, *wshub.Hub) {
	t.Helper()
	hub := wshub.NewHub()
	t.Cleanup(hub.Stop)

	users := &stubUserRepo{users: map[string]*domain.User{
		"123": {ID: "123"},
	}}

	srv := NewServer(&config.Config{Port: "0"}, users, hub, redis, postgres)
	return srv, hub
}

func TestHandleLiveness(t *testing.T) {
	srv, _ := newTestServer(t, &mockRedisClient{}, &mockPgxPool{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleReadinessAllHealthy(t *testing.T) {
	srv, _ := newTestServer(t, &mockRedisClient{}, &mockPgxPool{})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadinessReportsFailedCheck(t *testing.T) {
	srv, _ := newTestServer(t, &mockRedisClient{pingErr: errors.New("connection refused")}, &mockPgxPool{})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "redis", body["failed_check"])
}

func TestHandleReadinessPostgresDown(t *testing.T) {
	srv, _ := newTestServer(t, &mockRedisClient{}, &mockPgxPool{pingErr: errors.New("pool closed")})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "postgres", body["failed_check"])
}

func TestWebSocketUnknownChannelRejected(t *testing.T) {
	srv, _ := newTestServer(t, &mockRedisClient{}, &mockPgxPool{})

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/overlay/999"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil) //nolint:bodyclose
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketReceivesBroadcast(t *testing.T) {
	srv, hub := newTestServer(t, &mockRedisClient{}, &mockPgxPool{})

	ts := httptest.NewServer(srv.echo)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/overlay/123"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount("123") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("123", []byte(`{"type":"stream_started"}`))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"stream_started"}`, string(msg))
}
