package realtime

import "github.com/sakif/tictactoe/internal/model"

// EventType names a server→client push event.
type EventType string

const (
	// EventConnected is sent to a single connection right after it attaches,
	// carrying the current game snapshot so reconnecting clients resync.
	EventConnected EventType = "connected"
	// EventPlayerJoined fires when the O seat is filled.
	EventPlayerJoined EventType = "player_joined"
	// EventGameUpdate fires after every accepted online-mode move.
	EventGameUpdate EventType = "game_update"
	// EventRematchCreated fires on the ORIGINAL game's channel when a rematch
	// game is created, so the peer can navigate to the new session.
	EventRematchCreated EventType = "rematch_created"
	// EventPlayerDisconnected tells remaining peers a connection dropped.
	// Advisory only — the game stays playable.
	EventPlayerDisconnected EventType = "player_disconnected"
	// EventPong answers a client "ping" keep-alive.
	EventPong EventType = "pong"
)

// Event is the wire format for every push message. Payloads always carry the
// full normalized game object where applicable — no delta encoding, so a
// client can rebuild its view from any single event.
type Event struct {
	Type      EventType   `json:"type"`
	Game      *model.Game `json:"game,omitempty"`
	NewGameID string      `json:"new_game_id,omitempty"`
	PlayerID  string      `json:"player_id,omitempty"`
}
