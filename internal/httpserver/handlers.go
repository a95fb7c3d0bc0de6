package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/streamward/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for OBS browser source
	},
}

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(200, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"redis", s.checkRedis},
		{"postgres", s.checkPostgres},
	}

	for _, check := range checks {
		if err := check.fn(ctx); err != nil {
			return c.JSON(503, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(200, map[string]string{"status": "ready"})
}

func (s *Server) checkRedis(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Server) checkPostgres(ctx context.Context) error {
	return s.postgres.Ping(ctx)
}

func (s *Server) handleWebSocket(c echo.Context) error {
	broadcasterID := c.Param("channel")
	if broadcasterID == "" {
		return c.String(400, "Missing channel")
	}

	ctx := c.Request().Context()

	// Only registered broadcasters get an overlay channel.
	if _, err := s.users.GetByID(ctx, broadcasterID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.String(404, "Channel not found")
		}
		slog.Error("Failed to look up broadcaster", "broadcaster_id", broadcasterID, "error", err)
		return c.String(500, "Internal error")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket", "error", err)
		return nil
	}

	if err := s.hub.Register(broadcasterID, conn); err != nil {
		// Connection already closed by the hub.
		slog.Warn("Rejected overlay client", "broadcaster_id", broadcasterID, "error", err)
		return nil
	}

	// Read pump, blocks until the connection closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.hub.Unregister(broadcasterID, conn)

	return nil
}
