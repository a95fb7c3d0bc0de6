package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pscheid92/streamward/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheerUpdatesBitsAndEmitsAlert(t *testing.T) {
	env := newScopeEnv()
	require.NoError(t, env.counters.Save(context.Background(), &domain.Counters{
		BroadcasterID: "b1", BitsThisStream: 50, BitsTotal: 1000,
	}))
	h := NewCheerHandler(env.factory())

	ev := json.RawMessage(`{"is_anonymous":false,"user_name":"Cheerer","broadcaster_user_id":"b1","message":"Cheer100 Great stream!","bits":100}`)
	require.NoError(t, h.Handle(context.Background(), ev))

	saved, err := env.counters.GetByBroadcaster(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), saved.BitsThisStream)
	assert.Equal(t, int64(1100), saved.BitsTotal)

	require.Len(t, env.overlay.alerts, 1)
	alert := env.overlay.alerts[0]
	assert.Equal(t, domain.AlertCheer, alert.Kind)
	assert.Equal(t, "Cheerer", alert.DisplayName)
	assert.Equal(t, int64(100), alert.Bits)
	assert.Equal(t, "Cheer100 Great stream!", alert.Message)
}

func TestCheerAnonymousUsesPlaceholderName(t *testing.T) {
	env := newScopeEnv()
	h := NewCheerHandler(env.factory())

	ev := json.RawMessage(`{"is_anonymous":true,"user_name":"HiddenUser","broadcaster_user_id":"b1","bits":500}`)
	require.NoError(t, h.Handle(context.Background(), ev))

	require.Len(t, env.overlay.alerts, 1)
	assert.Equal(t, "Anonymous", env.overlay.alerts[0].DisplayName)
}

func TestFollowIncrementsCounterAndEmitsAlert(t *testing.T) {
	env := newScopeEnv()
	h := NewFollowHandler(env.factory())

	ev := json.RawMessage(`{"user_name":"NewFan","broadcaster_user_id":"b1"}`)
	require.NoError(t, h.Handle(context.Background(), ev))

	saved, err := env.counters.GetByBroadcaster(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Follows)

	require.Len(t, env.overlay.alerts, 1)
	assert.Equal(t, domain.AlertFollow, env.overlay.alerts[0].Kind)
	assert.Equal(t, "NewFan", env.overlay.alerts[0].DisplayName)
}

func TestFollowWithoutNameFallsBackToPlaceholder(t *testing.T) {
	env := newScopeEnv()
	h := NewFollowHandler(env.factory())

	require.NoError(t, h.Handle(context.Background(), json.RawMessage(`{"broadcaster_user_id":"b1"}`)))

	require.Len(t, env.overlay.alerts, 1)
	assert.Equal(t, "Someone", env.overlay.alerts[0].DisplayName)
}

func TestSubscribeIncrementsSubsAndMapsTier(t *testing.T) {
	env := newScopeEnv()
	h := NewSubscribeHandler(env.factory())

	ev := json.RawMessage(`{"user_name":"Subby","broadcaster_user_id":"b1","tier":"3000","is_gift":false}`)
	require.NoError(t, h.Handle(context.Background(), ev))

	saved, err := env.counters.GetByBroadcaster(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Subs)

	require.Len(t, env.overlay.alerts, 1)
	assert.Equal(t, domain.AlertSub, env.overlay.alerts[0].Kind)
	assert.Equal(t, "Tier 3", env.overlay.alerts[0].Tier)
}

func TestSubscriptionGiftCountsEveryGiftedSub(t *testing.T) {
	env := newScopeEnv()
	h := NewSubscriptionGiftHandler(env.factory())

	ev := json.RawMessage(`{"user_name":"Gifter","broadcaster_user_id":"b1","total":5,"tier":"1000","is_anonymous":false}`)
	require.NoError(t, h.Handle(context.Background(), ev))

	saved, err := env.counters.GetByBroadcaster(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), saved.GiftedSubs)
	assert.Equal(t, int64(5), saved.Subs)

	require.Len(t, env.overlay.alerts, 1)
	assert.Equal(t, domain.AlertSubGift, env.overlay.alerts[0].Kind)
	assert.Equal(t, int64(5), env.overlay.alerts[0].GiftCount)
	assert.Equal(t, "Tier 1", env.overlay.alerts[0].Tier)
}

func TestRaidRoutesAlertToTarget(t *testing.T) {
	env := newScopeEnv()
	h := NewRaidHandler(env.factory())

	ev := json.RawMessage(`{"from_broadcaster_user_name":"Raider","to_broadcaster_user_id":"b1","viewers":230}`)
	require.NoError(t, h.Handle(context.Background(), ev))

	require.Len(t, env.overlay.alerts, 1)
	alert := env.overlay.alerts[0]
	assert.Equal(t, domain.AlertRaid, alert.Kind)
	assert.Equal(t, "b1", alert.BroadcasterID)
	assert.Equal(t, "Raider", alert.DisplayName)
	assert.Equal(t, int64(230), alert.Viewers)
}

func TestAlertStillEmittedWhenCounterSaveFails(t *testing.T) {
	env := newScopeEnv()
	env.counters.saveErr = assert.AnError
	h := NewFollowHandler(env.factory())

	require.NoError(t, h.Handle(context.Background(), json.RawMessage(`{"user_name":"NewFan","broadcaster_user_id":"b1"}`)))

	assert.Len(t, env.overlay.alerts, 1, "tally persistence must not gate the alert")
}
