package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	TwitchClientID     string `env:"TWITCH_CLIENT_ID"`
	TwitchClientSecret string `env:"TWITCH_CLIENT_SECRET"`
	BotUserID          string `env:"BOT_USER_ID"`

	// EventSubURL is the session-protocol endpoint the stream monitor dials.
	EventSubURL string `env:"EVENTSUB_URL" default:"wss://eventsub.wss.twitch.tv/ws"`
	// MonitorBroadcasterIDs is a comma-separated list of broadcaster IDs to
	// provision subscriptions for on session welcome.
	MonitorBroadcasterIDs string        `env:"MONITOR_BROADCASTER_IDS"`
	KeepaliveTimeout      time.Duration `env:"KEEPALIVE_TIMEOUT" default:"70s"`

	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`

	InviteFallbackLink      string        `env:"INVITE_FALLBACK_LINK" default:"https://discord.gg/streamward"`
	InviteThrottleWindow    time.Duration `env:"INVITE_THROTTLE_WINDOW" default:"5m"`
	InviteBroadcastInterval time.Duration `env:"INVITE_BROADCAST_INTERVAL" default:"15m"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Broadcasters returns the configured broadcaster IDs, trimmed and with
// empty entries dropped.
func (c *Config) Broadcasters() []string {
	var ids []string
	for _, id := range strings.Split(c.MonitorBroadcasterIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":         cfg.DatabaseURL,
		"REDIS_URL":            cfg.RedisURL,
		"TWITCH_CLIENT_ID":     cfg.TwitchClientID,
		"TWITCH_CLIENT_SECRET": cfg.TwitchClientSecret,
		"BOT_USER_ID":          cfg.BotUserID,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.InviteThrottleWindow <= 0 {
		return fmt.Errorf("INVITE_THROTTLE_WINDOW must be positive, got %s", cfg.InviteThrottleWindow)
	}
	if cfg.InviteBroadcastInterval <= 0 {
		return fmt.Errorf("INVITE_BROADCAST_INTERVAL must be positive, got %s", cfg.InviteBroadcastInterval)
	}
	if cfg.KeepaliveTimeout <= 0 {
		return fmt.Errorf("KEEPALIVE_TIMEOUT must be positive, got %s", cfg.KeepaliveTimeout)
	}

	return nil
}
