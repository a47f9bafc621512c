// Package realtime maintains the live WebSocket connections of every game
// and fans events out to them.
//
// The registry is two-level: game ID → player ID → connection. One
// connection per participant per game; a reconnect replaces the previous
// connection. Each connection owns a buffered send channel drained by a
// write pump goroutine, so a slow or dead peer never blocks the HTTP
// request (or the other peer) that triggered a broadcast — its events are
// simply dropped once the buffer is full.
//
// Channel lifecycle discipline: the hub's mutex guards both the registry
// and channel closes. Sends happen under the read lock, closes under the
// write lock, so a send can never race a close.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// sendBufferSize is how many undelivered events a connection may queue
// before the hub starts dropping events for it.
const sendBufferSize = 8

// Hub is the connection registry for all games.
type Hub struct {
	logger *slog.Logger

	mu    sync.RWMutex
	games map[string]map[string]*Connection
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		games:  make(map[string]map[string]*Connection),
	}
}

// Connection is one participant's live WebSocket attachment to one game.
type Connection struct {
	hub      *Hub
	conn     *websocket.Conn
	gameID   string
	playerID string
	send     chan Event
}

// Register attaches a WebSocket to a game's connection set and starts its
// write pump. If the participant already had a connection (a reconnect),
// the old one is dropped in its favour.
func (h *Hub) Register(gameID, playerID string, ws *websocket.Conn) *Connection {
	c := &Connection{
		hub:      h,
		conn:     ws,
		gameID:   gameID,
		playerID: playerID,
		send:     make(chan Event, sendBufferSize),
	}

	h.mu.Lock()
	conns, ok := h.games[gameID]
	if !ok {
		conns = make(map[string]*Connection)
		h.games[gameID] = conns
	}
	if old, ok := conns[playerID]; ok {
		close(old.send)
	}
	conns[playerID] = c
	h.mu.Unlock()

	go c.writePump()

	h.logger.Debug("ws connected",
		slog.String("game_id", gameID),
		slog.String("player_id", playerID),
	)

	return c
}

// Unregister removes a connection and tells the remaining peers about the
// departure. Advisory only: the game itself stays playable and the player
// can reconnect at any time for a fresh snapshot.
//
// Safe to call more than once; only the currently registered connection is
// removed.
func (h *Hub) Unregister(c *Connection) {
	h.mu.Lock()
	conns, ok := h.games[c.gameID]
	if !ok || conns[c.playerID] != c {
		h.mu.Unlock()
		return
	}
	delete(conns, c.playerID)
	if len(conns) == 0 {
		delete(h.games, c.gameID)
	}
	close(c.send)
	h.mu.Unlock()

	h.logger.Debug("ws disconnected",
		slog.String("game_id", c.gameID),
		slog.String("player_id", c.playerID),
	)

	h.Broadcast(c.gameID, Event{
		Type:     EventPlayerDisconnected,
		PlayerID: c.playerID,
	})
}

// Broadcast delivers an event to every live connection of a game,
// best-effort. Implements service.Broadcaster.
func (h *Hub) Broadcast(gameID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.games[gameID] {
		select {
		case c.send <- event:
		default:
			h.logger.Warn("dropping event for slow ws peer",
				slog.String("game_id", gameID),
				slog.String("player_id", c.playerID),
				slog.String("event", string(event.Type)),
			)
		}
	}
}

// send queues an event for a single connection, if it is still registered.
func (h *Hub) send(c *Connection, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if conns, ok := h.games[c.gameID]; !ok || conns[c.playerID] != c {
		return
	}
	select {
	case c.send <- event:
	default:
	}
}

// Send queues an event for this connection alone (the connected snapshot,
// pong replies). Best-effort like everything else.
func (c *Connection) Send(event Event) {
	c.hub.send(c, event)
}

// clientMessage is the only shape clients send: keep-alive pings.
type clientMessage struct {
	Type string `json:"type"`
}

// ReadLoop consumes client messages until the connection drops, answering
// pings with pongs. It blocks, so the HTTP handler calls it last; the
// deferred unregister is what triggers the player_disconnected broadcast.
func (c *Connection) ReadLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			c.Send(Event{Type: EventPong})
		}
	}
}

// writePump drains the send channel onto the wire. It exits when the
// channel closes (unregister) or a write fails (dead peer); either way the
// underlying connection gets closed, which also unblocks ReadLoop.
func (c *Connection) writePump() {
	defer c.conn.Close()

	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			return
		}
	}
}
