package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/skip2/go-qrcode"

	"github.com/sakif/tictactoe/internal/model"
	"github.com/sakif/tictactoe/internal/service"
)

// qrSize is the pixel width/height of generated QR images.
const qrSize = 256

// GameHandler exposes the game lifecycle endpoints: create, lobby, join,
// move, rematch, replay, and the shareable QR code.
type GameHandler struct {
	games  *service.GameService
	logger *slog.Logger
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(games *service.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{games: games, logger: logger}
}

type createGameRequest struct {
	Mode     model.Mode `json:"mode"`
	PlayerID string     `json:"player_id"`
}

type joinGameRequest struct {
	PlayerID string `json:"player_id"`
}

type joinByCodeRequest struct {
	PlayerID string `json:"player_id"`
	Code     string `json:"code"`
}

type moveRequest struct {
	PlayerID string `json:"player_id"`
	Position int    `json:"position"`
}

type rematchRequest struct {
	Mode     model.Mode `json:"mode"`
	PlayerID string     `json:"player_id"`
}

// HandleCreate starts a new game.
//
// HTTP: POST /api/games
// Body: {"mode": "online", "player_id": "..."}
func (h *GameHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	game, err := h.games.Create(r.Context(), req.Mode, req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, game)
}

// HandleListWaiting returns the lobby of online games missing an opponent.
//
// HTTP: GET /api/games/waiting
func (h *GameHandler) HandleListWaiting(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.ListWaiting(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// HandleGet returns a game by ID.
//
// HTTP: GET /api/games/{id}
func (h *GameHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// HandleGetByCode resolves a join code, case-insensitively.
//
// HTTP: GET /api/games/by-code/{code}
func (h *GameHandler) HandleGetByCode(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// HandleJoin seats the requester as player O.
//
// HTTP: POST /api/games/{id}/join
// Body: {"player_id": "..."}
func (h *GameHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	game, err := h.games.Join(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, game)
}

// HandleJoinByCode joins via a shared code instead of a game ID.
//
// HTTP: POST /api/games/join-by-code
// Body: {"player_id": "...", "code": "A7K2MP"}
func (h *GameHandler) HandleJoinByCode(w http.ResponseWriter, r *http.Request) {
	var req joinByCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	game, err := h.games.JoinByCode(r.Context(), req.Code, req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, game)
}

// HandleMove applies one move.
//
// HTTP: POST /api/games/{id}/move
// Body: {"player_id": "...", "position": 4}
func (h *GameHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	game, err := h.games.Move(r.Context(), r.PathValue("id"), req.PlayerID, req.Position)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, game)
}

// HandleRematch creates a follow-up game with the same seats.
//
// HTTP: POST /api/games/{id}/rematch
// Body: {"mode": "online", "player_id": "..."}
func (h *GameHandler) HandleRematch(w http.ResponseWriter, r *http.Request) {
	var req rematchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	game, err := h.games.Rematch(r.Context(), r.PathValue("id"), req.Mode, req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, game)
}

// HandleReplay reconstructs the game board move by move.
//
// HTTP: GET /api/games/{id}/replay
func (h *GameHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	replay, err := h.games.Replay(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replay)
}

// HandleQR renders the game's join code as a PNG QR image, for sharing a
// session with the second player out-of-band (scan from the first player's
// screen instead of typing the code).
//
// HTTP: GET /api/games/{id}/qr
func (h *GameHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	png, err := qrcode.Encode(game.Code, qrcode.Medium, qrSize)
	if err != nil {
		h.logger.Error("failed to encode QR code",
			slog.String("game_id", game.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.Warn("failed to write QR response", slog.String("error", err.Error()))
	}
}
