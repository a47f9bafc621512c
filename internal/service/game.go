package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/tictactoe/internal/apperror"
	"github.com/sakif/tictactoe/internal/game"
	"github.com/sakif/tictactoe/internal/lock"
	"github.com/sakif/tictactoe/internal/model"
	"github.com/sakif/tictactoe/internal/realtime"
	"github.com/sakif/tictactoe/internal/repository"
)

// localOpponentName is the display-only label for the second seat of a
// local game. It is never backed by a real player record.
const localOpponentName = "Player O"

// maxCodeAttempts bounds the collision-retry loop for join codes. With a
// 31-character alphabet and 6 positions the space is ~900M codes, so more
// than a couple of iterations means the store is lying to us.
const maxCodeAttempts = 10

// Broadcaster pushes an event to every live connection of a game.
// Fire-and-forget: implementations must never block the caller or
// surface per-peer delivery failures.
type Broadcaster interface {
	Broadcast(gameID string, event realtime.Event)
}

// NopBroadcaster discards every event. Useful in tests and anywhere a
// GameService runs without a realtime hub.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(string, realtime.Event) {}

// GameService owns the game-session state machine: create, join, move,
// rematch, and replay reconstruction.
//
// Every mutation of an existing game (join, move) runs under that game's
// lock so concurrent requests serialize instead of racing the same board
// snapshot. Requests for different games proceed in parallel.
type GameService struct {
	players     repository.PlayerRepository
	games       repository.GameRepository
	broadcaster Broadcaster
	locks       *lock.GameLock
	logger      *slog.Logger
}

// NewGameService creates a new GameService.
func NewGameService(players repository.PlayerRepository, games repository.GameRepository, broadcaster Broadcaster, logger *slog.Logger) *GameService {
	return &GameService{
		players:     players,
		games:       games,
		broadcaster: broadcaster,
		locks:       lock.NewGameLock(),
		logger:      logger,
	}
}

// Create starts a new game for the requesting player.
//
// Local mode seats a single human at both symbols: the game starts
// in_progress immediately and the O seat holds only a display label.
// Online mode starts waiting until a second player joins.
func (s *GameService) Create(ctx context.Context, mode model.Mode, playerID string) (*model.Game, error) {
	if !mode.Valid() {
		return nil, apperror.ValidationFailed("mode", fmt.Sprintf("unknown game mode %q", mode))
	}

	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	g := &model.Game{
		Code:            code,
		Mode:            mode,
		PlayerXID:       player.ID,
		PlayerXUsername: player.Username,
		State:           model.NewGameState(),
		Moves:           []model.GameMove{},
	}
	if mode == model.ModeLocal {
		g.Status = model.StatusInProgress
		name := localOpponentName
		g.PlayerOUsername = &name
	} else {
		g.Status = model.StatusWaiting
	}

	if err := s.games.Create(ctx, g); err != nil {
		s.logger.Error("failed to create game",
			slog.String("player_id", playerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating game: %w", err)
	}

	s.logger.Info("game created",
		slog.String("id", g.ID),
		slog.String("code", g.Code),
		slog.String("mode", string(g.Mode)),
	)

	return g, nil
}

// Get retrieves a game by ID.
func (s *GameService) Get(ctx context.Context, gameID string) (*model.Game, error) {
	return s.games.GetByID(ctx, gameID)
}

// GetByCode retrieves a game by join code, case-insensitively.
func (s *GameService) GetByCode(ctx context.Context, code string) (*model.Game, error) {
	return s.games.GetByCode(ctx, normalizeCode(code))
}

// ListWaiting returns the lobby: online games still missing an opponent.
func (s *GameService) ListWaiting(ctx context.Context) ([]model.Game, error) {
	return s.games.ListWaiting(ctx)
}

// Join seats joiningPlayer as O and starts the game.
//
// Rejected when the game is local-mode, when the joiner created the game,
// or when the O seat is already taken. On success every connection on the
// game's channel receives a player_joined event with the full game.
func (s *GameService) Join(ctx context.Context, gameID, playerID string) (*model.Game, error) {
	var joined *model.Game

	err := s.locks.WithLock(gameID, func() error {
		g, err := s.games.GetByID(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Mode != model.ModeOnline {
			return apperror.ValidationFailed("mode", "cannot join a local game")
		}
		if g.PlayerXID == playerID {
			return apperror.Conflict("cannot join your own game")
		}
		if g.PlayerOID != nil {
			return apperror.Conflict("game already has two players")
		}

		player, err := s.players.GetByID(ctx, playerID)
		if err != nil {
			return err
		}

		g.PlayerOID = &player.ID
		g.PlayerOUsername = &player.Username
		g.Status = model.StatusInProgress

		if err := s.games.Update(ctx, g); err != nil {
			return fmt.Errorf("joining game %s: %w", gameID, err)
		}

		joined = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player joined game",
		slog.String("game_id", joined.ID),
		slog.String("player_id", playerID),
	)
	s.broadcaster.Broadcast(joined.ID, realtime.Event{
		Type: realtime.EventPlayerJoined,
		Game: joined,
	})

	return joined, nil
}

// JoinByCode resolves a join code (case-insensitive) and delegates to Join.
func (s *GameService) JoinByCode(ctx context.Context, code, playerID string) (*model.Game, error) {
	g, err := s.games.GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}
	return s.Join(ctx, g.ID, playerID)
}

// Move applies one move for playerID at position.
//
// Validation order: game exists → not completed → not waiting → position in
// range → player participates → cell empty → (online only) it is that
// player's turn. Local mode skips the turn-ownership check because one human
// drives both symbols.
//
// On success the symbol is written, an immutable move record appended, and
// the board re-evaluated: a win or draw completes the game and freezes the
// turn; otherwise the turn flips. Online games broadcast a game_update to
// all connected peers; local games have no remote peer to synchronize.
func (s *GameService) Move(ctx context.Context, gameID, playerID string, position int) (*model.Game, error) {
	var moved *model.Game

	err := s.locks.WithLock(gameID, func() error {
		g, err := s.games.GetByID(ctx, gameID)
		if err != nil {
			return err
		}
		if g.Status == model.StatusCompleted {
			return apperror.Conflict("game already completed")
		}
		if g.Status == model.StatusWaiting {
			return apperror.Conflict("waiting for an opponent to join")
		}
		if position < 0 || position > 8 {
			return apperror.ValidationFailed("position", "position must be between 0 and 8")
		}
		if !g.IsParticipant(playerID) {
			return apperror.Forbidden("player is not part of this game")
		}
		if g.State.Board[position] != nil {
			return apperror.Conflict("cell already occupied")
		}

		turn := g.State.CurrentTurn
		if g.Mode == model.ModeOnline {
			if turn == model.SymbolX && playerID != g.PlayerXID {
				return apperror.Conflict("not your turn")
			}
			if turn == model.SymbolO && (g.PlayerOID == nil || playerID != *g.PlayerOID) {
				return apperror.Conflict("not your turn")
			}
		}

		now := time.Now().UTC()
		sym := turn
		g.State.Board[position] = &sym
		g.Moves = append(g.Moves, model.GameMove{
			PlayerID:  playerID,
			Symbol:    turn,
			Position:  position,
			Timestamp: now,
		})

		winner, line, draw := game.Evaluate(g.State.Board)
		g.State.Winner = winner
		g.State.WinningLine = line
		g.State.IsDraw = draw
		if winner != nil || draw {
			g.Status = model.StatusCompleted
			g.CompletedAt = &now
		} else {
			g.State.CurrentTurn = turn.Other()
		}

		if err := s.games.Update(ctx, g); err != nil {
			return fmt.Errorf("persisting move on game %s: %w", gameID, err)
		}

		moved = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	if moved.Status == model.StatusCompleted {
		s.logger.Info("game completed",
			slog.String("game_id", moved.ID),
			slog.Bool("draw", moved.State.IsDraw),
			slog.Int("moves", len(moved.Moves)),
		)
	}
	if moved.Mode == model.ModeOnline {
		s.broadcaster.Broadcast(moved.ID, realtime.Event{
			Type: realtime.EventGameUpdate,
			Game: moved,
		})
	}

	return moved, nil
}

// Rematch creates a fresh game carrying over the seats of a previous one.
//
// The original game is left untouched; the new game gets its own ID and
// code, an empty board, and starts in_progress. An online rematch requires
// the original game to have a second player, and announces the new game on
// the ORIGINAL game's channel so the waiting peer can navigate over.
func (s *GameService) Rematch(ctx context.Context, gameID string, mode model.Mode, playerID string) (*model.Game, error) {
	if !mode.Valid() {
		return nil, apperror.ValidationFailed("mode", fmt.Sprintf("unknown game mode %q", mode))
	}

	prev, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if _, err := s.players.GetByID(ctx, playerID); err != nil {
		return nil, err
	}
	if mode == model.ModeOnline && prev.PlayerOID == nil {
		return nil, apperror.Conflict("game has no opponent to rematch")
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	next := &model.Game{
		Code:            code,
		Mode:            mode,
		Status:          model.StatusInProgress,
		PlayerXID:       prev.PlayerXID,
		PlayerXUsername: prev.PlayerXUsername,
		State:           model.NewGameState(),
		Moves:           []model.GameMove{},
	}
	if prev.PlayerOID != nil {
		id := *prev.PlayerOID
		next.PlayerOID = &id
	}
	if prev.PlayerOUsername != nil {
		name := *prev.PlayerOUsername
		next.PlayerOUsername = &name
	} else if mode == model.ModeLocal {
		name := localOpponentName
		next.PlayerOUsername = &name
	}

	if err := s.games.Create(ctx, next); err != nil {
		return nil, fmt.Errorf("creating rematch for game %s: %w", gameID, err)
	}

	s.logger.Info("rematch created",
		slog.String("from_game_id", gameID),
		slog.String("new_game_id", next.ID),
		slog.String("mode", string(mode)),
	)

	if mode == model.ModeOnline {
		s.broadcaster.Broadcast(gameID, realtime.Event{
			Type:      realtime.EventRematchCreated,
			NewGameID: next.ID,
			Game:      next,
		})
	}

	return next, nil
}

// ReplaySnapshot is one frame of a replay: the board after a move, plus the
// move that produced it (nil for the initial empty frame).
type ReplaySnapshot struct {
	Board model.Board     `json:"board"`
	Move  *model.GameMove `json:"move"`
}

// Replay is the full reconstruction of a game from its move log.
type Replay struct {
	Game       *model.Game      `json:"game"`
	Snapshots  []ReplaySnapshot `json:"snapshots"`
	TotalMoves int              `json:"total_moves"`
}

// Replay rebuilds the board state move by move from the append-only log.
// Pure read: snapshot count is always len(moves)+1, starting from the empty
// board, and consecutive snapshots differ in exactly one cell.
func (s *GameService) Replay(ctx context.Context, gameID string) (*Replay, error) {
	g, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var board model.Board
	snapshots := make([]ReplaySnapshot, 0, len(g.Moves)+1)
	snapshots = append(snapshots, ReplaySnapshot{Board: board})

	for i := range g.Moves {
		mv := g.Moves[i]
		sym := mv.Symbol
		board[mv.Position] = &sym
		snapshots = append(snapshots, ReplaySnapshot{Board: board, Move: &g.Moves[i]})
	}

	return &Replay{
		Game:       g,
		Snapshots:  snapshots,
		TotalMoves: len(g.Moves),
	}, nil
}

// uniqueCode generates a join code not currently held by any stored game.
func (s *GameService) uniqueCode(ctx context.Context) (string, error) {
	for range maxCodeAttempts {
		code := game.NewCode()
		_, err := s.games.GetByCode(ctx, code)
		if apperrorIsNotFound(err) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking code uniqueness: %w", err)
		}
		// Collision: loop and draw again.
	}
	return "", fmt.Errorf("could not generate a unique game code after %d attempts", maxCodeAttempts)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func apperrorIsNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
