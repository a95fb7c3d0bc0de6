// Package httpserver exposes the operational HTTP surface: health
// probes, Prometheus metrics, and the overlay WebSocket endpoint.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/streamward/internal/domain"
	"github.com/pscheid92/streamward/internal/platform/config"
	"github.com/pscheid92/streamward/internal/websocket"
)

// redisHealthChecker is a minimal interface for Redis health checks.
type redisHealthChecker interface {
	Ping(ctx context.Context) *goredis.StatusCmd
}

// postgresHealthChecker is a minimal interface for PostgreSQL health checks.
type postgresHealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	users     domain.UserRepository
	hub       *websocket.Hub
	redis     redisHealthChecker
	postgres  postgresHealthChecker
	startTime time.Time
}

func NewServer(cfg *config.Config, users domain.UserRepository, hub *websocket.Hub, redis redisHealthChecker, postgres postgresHealthChecker) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		users:     users,
		hub:       hub,
		redis:     redis,
		postgres:  postgres,
		startTime: time.Now(),
	}
	srv.registerRoutes()

	return srv
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Overlay WebSocket (OBS browser source, no auth)
	s.echo.GET("/ws/overlay/:channel", s.handleWebSocket)
}

func (s *Server) Start() error {
	slog.Info("Starting HTTP server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
