package notify

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/streamward/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLastWriteWins(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tracker := NewTracker(clock)

	_, ok := tracker.Last("b1")
	assert.False(t, ok)

	tracker.Record("b1", true)
	first := clock.Now()
	clock.Advance(time.Minute)
	tracker.Record("b1", false)

	rec, ok := tracker.Last("b1")
	require.True(t, ok)
	assert.False(t, rec.Success)
	assert.Equal(t, first.Add(time.Minute), rec.At)
}

func TestTrackerKeysAreIndependent(t *testing.T) {
	tracker := NewTracker(clockwork.NewFakeClock())

	tracker.Record("b1", true)
	tracker.Record("b2", false)

	rec1, ok := tracker.Last("b1")
	require.True(t, ok)
	assert.True(t, rec1.Success)

	rec2, ok := tracker.Last("b2")
	require.True(t, ok)
	assert.False(t, rec2.Success)
}

func TestMonitoringRegistryExpiresEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	registry := NewMonitoringRegistry(clock, time.Hour)

	registry.Put("b1", domain.MonitoringState{UseBotChannel: true, BotUserID: "bot-1"})

	state, ok := registry.Get("b1")
	require.True(t, ok)
	assert.True(t, state.UseBotChannel)
	assert.Equal(t, "bot-1", state.BotUserID)

	clock.Advance(time.Hour + time.Second)
	_, ok = registry.Get("b1")
	assert.False(t, ok, "expired entries force a fresh eligibility check")
}

func TestMonitoringRegistryForget(t *testing.T) {
	registry := NewMonitoringRegistry(clockwork.NewFakeClock(), time.Hour)

	registry.Put("b1", domain.MonitoringState{UseBotChannel: true})
	registry.Forget("b1")

	_, ok := registry.Get("b1")
	assert.False(t, ok)
}
