package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/streamward/internal/discord"
	"github.com/pscheid92/streamward/internal/domain"
	"github.com/pscheid92/streamward/internal/events"
	"github.com/pscheid92/streamward/internal/eventsub"
	"github.com/pscheid92/streamward/internal/httpserver"
	"github.com/pscheid92/streamward/internal/notify"
	"github.com/pscheid92/streamward/internal/platform/config"
	"github.com/pscheid92/streamward/internal/platform/logging"
	"github.com/pscheid92/streamward/internal/postgres"
	"github.com/pscheid92/streamward/internal/redis"
	"github.com/pscheid92/streamward/internal/twitch"
	"github.com/pscheid92/streamward/internal/websocket"
)

const monitoringStateTTL = 30 * time.Minute

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// newScopeFactory binds each handler invocation to a pooled connection, so
// a handler's repository calls share one connection and release it when the
// scope closes.
func newScopeFactory(pool *pgxpool.Pool, overlay domain.OverlaySink, streams domain.StreamAPI, notifier domain.StreamNotifier) events.ScopeFactory {
	return events.ScopeFactoryFunc(func(ctx context.Context) (*events.Scope, error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return events.NewScope(
			postgres.NewUserRepo(conn),
			postgres.NewCounterRepo(conn),
			postgres.NewGameRepo(conn),
			postgres.NewClaimRepo(conn),
			overlay,
			streams,
			notifier,
			conn.Release,
		), nil
	})
}

func drainRevocations(ctx context.Context, monitor *eventsub.Monitor, monitoring *notify.MonitoringRegistry, broadcasters []string) {
	for {
		select {
		case <-ctx.Done():
			return
		case rev := <-monitor.Revocations():
			slog.Warn("Subscription revoked upstream", "subscription_type", rev.SubscriptionType)
			// Revoked auth invalidates cached delivery channels.
			for _, id := range broadcasters {
				monitoring.Forget(id)
			}
		}
	}
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Upstream platform client with self-refreshing user tokens.
	users := postgres.NewUserRepo(pool)
	refresher := twitch.NewTokenRefresher(users, cfg.TwitchClientID, cfg.TwitchClientSecret, clock)
	client, err := twitch.NewClient(cfg.TwitchClientID, cfg.TwitchClientSecret, refresher)
	if err != nil {
		slog.Error("Failed to create Twitch client", "error", err)
		os.Exit(1)
	}
	eligibility := twitch.NewChecker(refresher, client, cfg.BotUserID)

	// Overlay fan-out: local hub fed by the cross-instance relay.
	hub := websocket.NewHub()
	relay := redis.NewAlertRelay(redisClient)
	subscriber := redis.NewSubscriber(redisClient, hub)
	go func() {
		if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Overlay subscriber stopped", "error", err)
		}
	}()

	// Invite pipeline: throttled sender plus the per-broadcaster scheduler.
	tracker := notify.NewTracker(clock)
	monitoring := notify.NewMonitoringRegistry(clock, monitoringStateTTL)
	sender := notify.NewSender(tracker, monitoring, users, eligibility, client, clock, cfg.InviteThrottleWindow, cfg.InviteFallbackLink)
	scheduler := notify.NewScheduler(sender, clock, cfg.InviteBroadcastInterval)
	defer scheduler.StopAll()

	notifier := discord.NewNotifier(cfg.DiscordWebhookURL)

	scopes := newScopeFactory(pool, relay, client, notifier)

	registry := events.NewRegistry(
		events.NewStreamOnlineHandler(scopes, scheduler, tracker, clock),
		events.NewStreamOfflineHandler(scopes, scheduler, clock),
		events.NewChannelUpdateHandler(scopes, clock),
		events.NewFollowHandler(scopes),
		events.NewCheerHandler(scopes),
		events.NewRaidHandler(scopes),
		events.NewSubscribeHandler(scopes),
		events.NewSubscriptionGiftHandler(scopes),
		events.NewChatNotificationHandler(scopes, sender),
	)

	provisioner := twitch.NewProvisioner(client, cfg.Broadcasters(), registry.SubscriptionTypes(), cfg.BotUserID)
	monitor := eventsub.NewMonitor(eventsub.GorillaDialer{}, registry, provisioner, clock, cfg.EventSubURL, cfg.KeepaliveTimeout)

	go func() {
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Stream monitor stopped", "error", err)
			cancel()
		}
	}()
	go drainRevocations(ctx, monitor, monitoring, cfg.Broadcasters())

	srv := httpserver.NewServer(cfg, users, hub, redisClient, pool)

	go func() {
		<-ctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		scheduler.StopAll()
		hub.Stop()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Application stopped")
}
