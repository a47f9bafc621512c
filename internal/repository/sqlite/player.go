package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/tictactoe/internal/apperror"
	"github.com/sakif/tictactoe/internal/model"
	"github.com/sakif/tictactoe/internal/repository"
)

// PlayerDB implements repository.PlayerRepository on the shared connection.
type PlayerDB struct {
	conn *sql.DB
}

// compile-time check that *PlayerDB implements repository.PlayerRepository
var _ repository.PlayerRepository = (*PlayerDB)(nil)

// Create inserts a new player, generating its ID and creation timestamp.
// A username collision surfaces as apperror.ErrConflict — the service checks
// first, but a concurrent create can still hit the UNIQUE constraint.
func (p *PlayerDB) Create(ctx context.Context, player *model.Player) error {
	player.ID = xid.New().String()
	player.CreatedAt = time.Now().UTC()

	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO players (id, username, created_at) VALUES (?, ?, ?)`,
		player.ID,
		player.Username,
		player.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("username %q already taken", player.Username))
		}
		return fmt.Errorf("sqlite: inserting player %q: %w", player.Username, err)
	}

	return nil
}

// GetByID retrieves a player by their ID.
// Returns apperror.ErrNotFound if no player exists with that ID.
func (p *PlayerDB) GetByID(ctx context.Context, id string) (*model.Player, error) {
	var pl model.Player

	err := p.conn.QueryRowContext(ctx,
		`SELECT id, username, created_at FROM players WHERE id = ?`,
		id,
	).Scan(&pl.ID, &pl.Username, &pl.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("player", id)
		}
		return nil, fmt.Errorf("sqlite: getting player %s: %w", id, err)
	}

	return &pl, nil
}

// GetByUsername retrieves a player by exact, case-sensitive username.
func (p *PlayerDB) GetByUsername(ctx context.Context, username string) (*model.Player, error) {
	var pl model.Player

	// SQLite LIKE is case-insensitive but = is not; = gives us the exact
	// case-sensitive match uniqueness is defined on.
	err := p.conn.QueryRowContext(ctx,
		`SELECT id, username, created_at FROM players WHERE username = ?`,
		username,
	).Scan(&pl.ID, &pl.Username, &pl.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("player", username)
		}
		return nil, fmt.Errorf("sqlite: getting player by username %q: %w", username, err)
	}

	return &pl, nil
}

// Search returns players whose username contains query, case-insensitively.
func (p *PlayerDB) Search(ctx context.Context, query string, limit int) ([]model.Player, error) {
	rows, err := p.conn.QueryContext(ctx,
		`SELECT id, username, created_at FROM players
		 WHERE username LIKE '%' || ? || '%'
		 ORDER BY username
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching players %q: %w", query, err)
	}
	defer rows.Close()

	players := []model.Player{}
	for rows.Next() {
		var pl model.Player
		if err := rows.Scan(&pl.ID, &pl.Username, &pl.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning player row: %w", err)
		}
		players = append(players, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating player rows: %w", err)
	}

	return players, nil
}

// Rename changes a player's username and cascades the new name into the
// denormalized copies in every game where the player holds either seat.
// All three updates run in one transaction: a rename is either fully
// visible everywhere or not at all.
func (p *PlayerDB) Rename(ctx context.Context, playerID, username string) error {
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning rename tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE players SET username = ? WHERE id = ?`,
		username, playerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("username %q already taken", username))
		}
		return fmt.Errorf("sqlite: renaming player %s: %w", playerID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("player", playerID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET player_x_username = ? WHERE player_x_id = ?`,
		username, playerID,
	); err != nil {
		return fmt.Errorf("sqlite: cascading rename to X seats: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE games SET player_o_username = ? WHERE player_o_id = ?`,
		username, playerID,
	); err != nil {
		return fmt.Errorf("sqlite: cascading rename to O seats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing rename: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite doesn't export a typed error for this, so we match
// on the well-known message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
