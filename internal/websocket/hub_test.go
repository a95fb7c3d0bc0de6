package websocket

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	writeErr error
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHubBroadcastReachesOnlyThatChannel(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	conn1 := &fakeConn{}
	conn2 := &fakeConn{}
	other := &fakeConn{}
	require.NoError(t, hub.Register("b1", conn1))
	require.NoError(t, hub.Register("b1", conn2))
	require.NoError(t, hub.Register("b2", other))

	hub.Broadcast("b1", []byte(`{"kind":"follow"}`))

	require.Eventually(t, func() bool {
		return conn1.received() == 1 && conn2.received() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, other.received(), "other channels must not see the message")
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	conn := &fakeConn{}
	require.NoError(t, hub.Register("b1", conn))
	assert.Equal(t, 1, hub.ClientCount("b1"))

	hub.Unregister("b1", conn)
	assert.Equal(t, 0, hub.ClientCount("b1"))

	hub.Broadcast("b1", []byte("late"))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, conn.received())
	assert.True(t, conn.isClosed())
}

func TestHubRejectsClientsBeyondLimit(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	for i := 0; i < maxClientsPerChannel; i++ {
		require.NoError(t, hub.Register("b1", &fakeConn{}))
	}

	extra := &fakeConn{}
	err := hub.Register("b1", extra)
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprint(maxClientsPerChannel))
	assert.True(t, extra.isClosed())
}

func TestHubBroadcastToEmptyChannelIsNoOp(t *testing.T) {
	hub := NewHub()
	defer hub.Stop()

	hub.Broadcast("nobody", []byte("hello"))
	assert.Equal(t, 0, hub.ClientCount("nobody"))
}
