package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:             "postgres://localhost/streamward",
		RedisURL:                "redis://localhost:6379",
		TwitchClientID:          "client-id",
		TwitchClientSecret:      "client-secret",
		BotUserID:               "42",
		InviteThrottleWindow:    5 * time.Minute,
		InviteBroadcastInterval: 15 * time.Minute,
		KeepaliveTimeout:        70 * time.Second,
	}
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	require.NoError(t, validate(validConfig()))
}

func TestValidate_RejectsMissingRequired(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	assert.ErrorContains(t, validate(cfg), "DATABASE_URL")

	cfg = validConfig()
	cfg.BotUserID = ""
	assert.ErrorContains(t, validate(cfg), "BOT_USER_ID")
}

func TestValidate_RejectsNonPositiveDurations(t *testing.T) {
	cfg := validConfig()
	cfg.InviteThrottleWindow = 0
	assert.ErrorContains(t, validate(cfg), "INVITE_THROTTLE_WINDOW")

	cfg = validConfig()
	cfg.InviteBroadcastInterval = -time.Minute
	assert.ErrorContains(t, validate(cfg), "INVITE_BROADCAST_INTERVAL")
}

func TestBroadcasters_SplitsAndTrims(t *testing.T) {
	cfg := validConfig()
	cfg.MonitorBroadcasterIDs = " 123 ,456,, 789"
	assert.Equal(t, []string{"123", "456", "789"}, cfg.Broadcasters())

	cfg.MonitorBroadcasterIDs = ""
	assert.Empty(t, cfg.Broadcasters())
}
