package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sakif/tictactoe/internal/realtime"
	"github.com/sakif/tictactoe/internal/service"
)

// upgrader turns HTTP requests into WebSocket connections. Origin checking
// is left to the CORS layer; the ws endpoint itself accepts any origin so
// that locally-served frontends can attach during development.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades realtime channel requests and attaches them to the hub.
type WSHandler struct {
	games  *service.GameService
	hub    *realtime.Hub
	logger *slog.Logger
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(games *service.GameService, hub *realtime.Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{games: games, hub: hub, logger: logger}
}

// HandleWS opens the realtime channel for one (game, participant) pair.
//
// HTTP: GET /api/ws/{game_id}/{player_id}  (WebSocket upgrade)
//
// If the game exists, the new connection immediately receives a `connected`
// event with the current snapshot — this is what makes reconnects resync
// without any extra protocol. The connection then stays open until the
// client drops it; there is no server-side idle timeout.
func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("game_id")
	playerID := r.PathValue("player_id")
	if gameID == "" || playerID == "" {
		http.Error(w, "game id and player id are required", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	conn := h.hub.Register(gameID, playerID, ws)

	// Unknown game IDs still get a channel (the game may be created a moment
	// later); they just don't get a snapshot.
	if game, err := h.games.Get(r.Context(), gameID); err == nil {
		conn.Send(realtime.Event{Type: realtime.EventConnected, Game: game})
	}

	conn.ReadLoop()
}
