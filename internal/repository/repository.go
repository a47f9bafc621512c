// Package repository defines the storage interfaces the rest of the
// application programs against. Two implementations exist: sqlite (durable)
// and memory (transient fallback when the database can't be opened).
// Services only ever see these interfaces, so the two are interchangeable.
package repository

import (
	"context"

	"github.com/sakif/tictactoe/internal/model"
)

// Store bundles the two repositories behind a single storage backend.
type Store interface {
	Players() PlayerRepository
	Games() GameRepository
	Close() error
}

type PlayerRepository interface {
	Create(ctx context.Context, player *model.Player) error
	GetByID(ctx context.Context, id string) (*model.Player, error)
	// GetByUsername matches exactly and case-sensitively.
	GetByUsername(ctx context.Context, username string) (*model.Player, error)
	// Search matches case-insensitive substrings, capped at limit results.
	Search(ctx context.Context, query string, limit int) ([]model.Player, error)
	// Rename updates the player's username AND the denormalized
	// player_x_username/player_o_username copies in every game where the
	// player holds a seat, atomically.
	Rename(ctx context.Context, playerID, username string) error
}

type GameRepository interface {
	Create(ctx context.Context, game *model.Game) error
	GetByID(ctx context.Context, id string) (*model.Game, error)
	// GetByCode expects an already-uppercased code.
	GetByCode(ctx context.Context, code string) (*model.Game, error)
	// ListWaiting returns online games still waiting for an opponent (the lobby).
	ListWaiting(ctx context.Context) ([]model.Game, error)
	// ListCompletedByPlayer returns completed games where the player holds
	// either seat, newest first by completed_at (created_at as fallback).
	// limit <= 0 means no limit.
	ListCompletedByPlayer(ctx context.Context, playerID string, limit int) ([]model.Game, error)
	// ListCompletedByUsername is the same ordering, matched on the
	// denormalized usernames instead of IDs.
	ListCompletedByUsername(ctx context.Context, username string, limit int) ([]model.Game, error)
	Update(ctx context.Context, game *model.Game) error
}
