package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/tictactoe/internal/apperror"
	"github.com/sakif/tictactoe/internal/model"
	"github.com/sakif/tictactoe/internal/repository"
)

// GameDB implements repository.GameRepository on the shared connection.
type GameDB struct {
	conn *sql.DB
}

// compile-time check that *GameDB implements repository.GameRepository
var _ repository.GameRepository = (*GameDB)(nil)

const gameColumns = `id, code, mode, status,
	player_x_id, player_x_username, player_o_id, player_o_username,
	state, moves, created_at, completed_at`

// Create inserts a new game, generating its ID and creation timestamp.
// The caller is responsible for the code being fresh; a collision with an
// existing code surfaces as apperror.ErrConflict so the code generator can
// retry.
func (g *GameDB) Create(ctx context.Context, game *model.Game) error {
	game.ID = xid.New().String()
	game.CreatedAt = time.Now().UTC()

	stateJSON, movesJSON, err := encodeStateAndMoves(game)
	if err != nil {
		return err
	}

	_, err = g.conn.ExecContext(ctx,
		`INSERT INTO games (`+gameColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		game.ID,
		game.Code,
		string(game.Mode),
		string(game.Status),
		game.PlayerXID,
		game.PlayerXUsername,
		game.PlayerOID,
		game.PlayerOUsername,
		stateJSON,
		movesJSON,
		game.CreatedAt,
		game.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("game code %q already in use", game.Code))
		}
		return fmt.Errorf("sqlite: inserting game %s: %w", game.ID, err)
	}

	return nil
}

// GetByID retrieves a game by its ID.
func (g *GameDB) GetByID(ctx context.Context, id string) (*model.Game, error) {
	row := g.conn.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`, id)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("game", id)
		}
		return nil, fmt.Errorf("sqlite: getting game %s: %w", id, err)
	}
	return game, nil
}

// GetByCode retrieves a game by its join code (already uppercased by the caller).
func (g *GameDB) GetByCode(ctx context.Context, code string) (*model.Game, error) {
	row := g.conn.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE code = ?`, code)

	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("game", code)
		}
		return nil, fmt.Errorf("sqlite: getting game by code %s: %w", code, err)
	}
	return game, nil
}

// ListWaiting returns online games still waiting for a second player.
func (g *GameDB) ListWaiting(ctx context.Context) ([]model.Game, error) {
	rows, err := g.conn.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE status = ? AND mode = ?
		 ORDER BY created_at DESC`,
		string(model.StatusWaiting), string(model.ModeOnline),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing waiting games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// ListCompletedByPlayer returns the player's completed games, newest first.
// Ordering falls back to created_at for rows missing completed_at.
func (g *GameDB) ListCompletedByPlayer(ctx context.Context, playerID string, limit int) ([]model.Game, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means no limit
	}
	rows, err := g.conn.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE status = ? AND (player_x_id = ? OR player_o_id = ?)
		 ORDER BY COALESCE(completed_at, created_at) DESC
		 LIMIT ?`,
		string(model.StatusCompleted), playerID, playerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing games for player %s: %w", playerID, err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// ListCompletedByUsername matches on the denormalized usernames instead of IDs.
func (g *GameDB) ListCompletedByUsername(ctx context.Context, username string, limit int) ([]model.Game, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := g.conn.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games
		 WHERE status = ? AND (player_x_username = ? OR player_o_username = ?)
		 ORDER BY COALESCE(completed_at, created_at) DESC
		 LIMIT ?`,
		string(model.StatusCompleted), username, username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing games for username %q: %w", username, err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// Update persists the game's mutable fields (seats, status, state, moves,
// completion time). ID, code, mode and created_at never change.
func (g *GameDB) Update(ctx context.Context, game *model.Game) error {
	stateJSON, movesJSON, err := encodeStateAndMoves(game)
	if err != nil {
		return err
	}

	res, err := g.conn.ExecContext(ctx,
		`UPDATE games SET
			status = ?,
			player_o_id = ?,
			player_o_username = ?,
			state = ?,
			moves = ?,
			completed_at = ?
		 WHERE id = ?`,
		string(game.Status),
		game.PlayerOID,
		game.PlayerOUsername,
		stateJSON,
		movesJSON,
		game.CompletedAt,
		game.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating game %s: %w", game.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("game", game.ID)
	}

	return nil
}

func encodeStateAndMoves(game *model.Game) (string, string, error) {
	stateJSON, err := json.Marshal(game.State)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encoding state for game %s: %w", game.ID, err)
	}
	moves := game.Moves
	if moves == nil {
		moves = []model.GameMove{}
	}
	movesJSON, err := json.Marshal(moves)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: encoding moves for game %s: %w", game.ID, err)
	}
	return string(stateJSON), string(movesJSON), nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanGame(s scanner) (*model.Game, error) {
	var (
		game        model.Game
		oID, oName  sql.NullString
		completedAt sql.NullTime
		stateJSON   string
		movesJSON   string
	)

	err := s.Scan(
		&game.ID,
		&game.Code,
		&game.Mode,
		&game.Status,
		&game.PlayerXID,
		&game.PlayerXUsername,
		&oID,
		&oName,
		&stateJSON,
		&movesJSON,
		&game.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if oID.Valid {
		game.PlayerOID = &oID.String
	}
	if oName.Valid {
		game.PlayerOUsername = &oName.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		game.CompletedAt = &t
	}

	if err := json.Unmarshal([]byte(stateJSON), &game.State); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	if err := json.Unmarshal([]byte(movesJSON), &game.Moves); err != nil {
		return nil, fmt.Errorf("decoding moves: %w", err)
	}

	return &game, nil
}

func collectGames(rows *sql.Rows) ([]model.Game, error) {
	games := []model.Game{}
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning game row: %w", err)
		}
		games = append(games, *game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating game rows: %w", err)
	}
	return games, nil
}
