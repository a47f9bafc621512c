package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/tictactoe/internal/service"
)

// PlayerHandler exposes the player identity, stats, and history endpoints.
type PlayerHandler struct {
	players *service.PlayerService
	logger  *slog.Logger
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(players *service.PlayerService, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{players: players, logger: logger}
}

type createPlayerRequest struct {
	Username string `json:"username"`
}

type updateUsernameRequest struct {
	Username string `json:"username"`
}

// HandleCreate creates a player or returns the existing one for a username.
//
// HTTP: POST /api/players
// Body: {"username": "alice"}
//
// Idempotent on purpose — posting a taken username returns that player, which
// is how clients sign in without credentials.
func (h *PlayerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid player JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	player, err := h.players.CreateOrGet(r.Context(), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, player)
}

// HandleGet returns a player by ID.
//
// HTTP: GET /api/players/{id}
func (h *PlayerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	player, err := h.players.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// HandleRename changes a player's username.
//
// HTTP: PUT /api/players/{id}/username
// Body: {"username": "new-name"}
//
// 409 if the name belongs to a different player. The rename cascades into
// the participant-name copies stored on games.
func (h *PlayerHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	var req updateUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	player, err := h.players.Rename(r.Context(), r.PathValue("id"), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, player)
}

// HandleSearch finds players by case-insensitive username substring.
//
// HTTP: GET /api/players/search/{query}
//
// Queries under two characters return an empty list rather than an error.
func (h *PlayerHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.Search(r.Context(), r.PathValue("query"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// HandleStats returns a player's aggregated win/loss/draw record.
//
// HTTP: GET /api/players/{id}/stats
func (h *PlayerHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.players.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleHistory returns a player's completed games, newest first.
//
// HTTP: GET /api/players/{id}/history?limit=20
func (h *PlayerHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	games, err := h.players.History(r.Context(), r.PathValue("id"), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// HandleGamesByUsername returns completed games for a username.
//
// HTTP: GET /api/players/{username}/games?limit=20
func (h *PlayerHandler) HandleGamesByUsername(w http.ResponseWriter, r *http.Request) {
	games, err := h.players.GamesByUsername(r.Context(), r.PathValue("username"), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// limitParam parses the optional ?limit= query parameter; 0 means "use the
// service default".
func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
