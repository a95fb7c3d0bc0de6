// Package websocket contains the overlay hub fanning out stream state and
// alerts to connected overlay clients.
package websocket

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pscheid92/streamward/internal/metrics"
)

const (
	maxClientsPerChannel = 50
	writeTimeout         = 5 * time.Second
)

// Conn is the write side of an overlay client connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	broadcasterID string
	conn          Conn
	errCh         chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	broadcasterID string
	conn          Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	broadcasterID string
	data          []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	broadcasterID string
	replyCh       chan int
}

func (cmdClientCount) hubCmd() {}

type cmdStop struct{}

func (cmdStop) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg, ok := <-cw.sendCh:
			if !ok {
				return
			}
			cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

// Hub routes overlay messages to the clients watching each broadcaster.
// All state is owned by a single actor goroutine; the public API only
// sends commands, so no locking is needed.
type Hub struct {
	cmdCh   chan hubCmd
	clients map[string]map[Conn]*clientWriter
}

func NewHub() *Hub {
	hub := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		clients: make(map[string]map[Conn]*clientWriter),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case cmdRegister:
			h.handleRegister(c)
		case cmdUnregister:
			h.handleUnregister(c.broadcasterID, c.conn)
		case cmdBroadcast:
			h.handleBroadcast(c)
		case cmdClientCount:
			c.replyCh <- len(h.clients[c.broadcasterID])
		case cmdStop:
			h.handleStop()
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	clients, exists := h.clients[c.broadcasterID]
	if !exists {
		clients = make(map[Conn]*clientWriter)
		h.clients[c.broadcasterID] = clients
	}

	if len(clients) >= maxClientsPerChannel {
		slog.Warn("Rejecting overlay client, channel full",
			"broadcaster_user_id", c.broadcasterID, "max_clients", maxClientsPerChannel)
		c.conn.Close()
		c.errCh <- fmt.Errorf("max clients per channel (%d) reached", maxClientsPerChannel)
		return
	}

	clients[c.conn] = newClientWriter(c.conn)
	metrics.OverlayClientsConnected.Inc()
	slog.Debug("Overlay client registered",
		"broadcaster_user_id", c.broadcasterID, "total_clients", len(clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(broadcasterID string, conn Conn) {
	clients, exists := h.clients[broadcasterID]
	if !exists {
		return
	}
	cw, exists := clients[conn]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, conn)
	metrics.OverlayClientsConnected.Dec()
	if len(clients) == 0 {
		delete(h.clients, broadcasterID)
	}
}

func (h *Hub) handleBroadcast(c cmdBroadcast) {
	clients, exists := h.clients[c.broadcasterID]
	if !exists {
		return
	}

	var slow []Conn
	for conn, cw := range clients {
		select {
		case cw.sendCh <- c.data:
		default:
			// client cannot keep up, drop it
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Info("Disconnecting slow overlay client", "broadcaster_user_id", c.broadcasterID)
		h.handleUnregister(c.broadcasterID, conn)
	}
}

func (h *Hub) handleStop() {
	for broadcasterID, clients := range h.clients {
		for _, cw := range clients {
			cw.stop()
			metrics.OverlayClientsConnected.Dec()
		}
		delete(h.clients, broadcasterID)
	}
}

// --- Public API ---

func (h *Hub) Register(broadcasterID string, conn Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- cmdRegister{broadcasterID: broadcasterID, conn: conn, errCh: errCh}
	return <-errCh
}

func (h *Hub) Unregister(broadcasterID string, conn Conn) {
	h.cmdCh <- cmdUnregister{broadcasterID: broadcasterID, conn: conn}
}

// Broadcast fans data out to every client watching the broadcaster.
func (h *Hub) Broadcast(broadcasterID string, data []byte) {
	h.cmdCh <- cmdBroadcast{broadcasterID: broadcasterID, data: data}
}

func (h *Hub) ClientCount(broadcasterID string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdClientCount{broadcasterID: broadcasterID, replyCh: replyCh}
	return <-replyCh
}

func (h *Hub) Stop() {
	h.cmdCh <- cmdStop{}
}
