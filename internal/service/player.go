// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-tier shape:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces game rules, orchestrates
//	Repository (data layer)  → reads/writes the store
//
// Services receive repository interfaces (never concrete store types) and
// return domain errors from the apperror package; handlers translate those
// to HTTP status codes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sakif/tictactoe/internal/apperror"
	"github.com/sakif/tictactoe/internal/model"
	"github.com/sakif/tictactoe/internal/repository"
)

const (
	// MinSearchQueryLength is the shortest username search we'll run;
	// anything shorter returns an empty result rather than an error.
	MinSearchQueryLength = 2
	// SearchResultLimit caps username search results.
	SearchResultLimit = 20
	// DefaultHistoryLimit is used when a history request doesn't specify one.
	DefaultHistoryLimit = 20
)

// PlayerService handles player identity, stats, and match history.
type PlayerService struct {
	players repository.PlayerRepository
	games   repository.GameRepository
	logger  *slog.Logger
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(players repository.PlayerRepository, games repository.GameRepository, logger *slog.Logger) *PlayerService {
	return &PlayerService{
		players: players,
		games:   games,
		logger:  logger,
	}
}

// CreateOrGet returns the existing player with this username, or creates one.
// Idempotent: posting the same username twice yields the same player, which
// is how clients "log in" without credentials.
func (s *PlayerService) CreateOrGet(ctx context.Context, username string) (*model.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	existing, err := s.players.GetByUsername(ctx, username)
	if err == nil {
		return existing, nil
	}
	if !apperrorIsNotFound(err) {
		return nil, fmt.Errorf("looking up username %q: %w", username, err)
	}

	player := &model.Player{Username: username}
	if err := s.players.Create(ctx, player); err != nil {
		s.logger.Error("failed to create player",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating player: %w", err)
	}

	s.logger.Info("player created",
		slog.String("id", player.ID),
		slog.String("username", player.Username),
	)

	return player, nil
}

// GetByID retrieves a player by their ID.
func (s *PlayerService) GetByID(ctx context.Context, id string) (*model.Player, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "player ID is required")
	}
	return s.players.GetByID(ctx, id)
}

// Rename changes a player's username. Fails with a conflict if another
// player already owns the new name; cascades into the denormalized
// username copies stored on games (handled atomically by the repository).
func (s *PlayerService) Rename(ctx context.Context, playerID, username string) (*model.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}

	existing, err := s.players.GetByUsername(ctx, username)
	if err == nil && existing.ID != playerID {
		return nil, apperror.Conflict(fmt.Sprintf("username %q already taken", username))
	}
	if err != nil && !apperrorIsNotFound(err) {
		return nil, fmt.Errorf("looking up username %q: %w", username, err)
	}

	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if err := s.players.Rename(ctx, playerID, username); err != nil {
		s.logger.Error("failed to rename player",
			slog.String("id", playerID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("player renamed",
		slog.String("id", playerID),
		slog.String("from", player.Username),
		slog.String("to", username),
	)

	player.Username = username
	return player, nil
}

// Search finds players whose username contains the query, case-insensitively.
// Queries shorter than MinSearchQueryLength return an empty list.
func (s *PlayerService) Search(ctx context.Context, query string) ([]model.Player, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinSearchQueryLength {
		return []model.Player{}, nil
	}
	return s.players.Search(ctx, query, SearchResultLimit)
}

// Stats aggregates the player's completed games into win/loss/draw counts.
// A win is credited to the seat whose symbol matches the recorded winner.
func (s *PlayerService) Stats(ctx context.Context, playerID string) (*model.PlayerStats, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}

	games, err := s.games.ListCompletedByPlayer(ctx, playerID, 0)
	if err != nil {
		return nil, fmt.Errorf("listing completed games for %s: %w", playerID, err)
	}

	stats := &model.PlayerStats{
		Username:   player.Username,
		TotalGames: len(games),
	}
	for _, g := range games {
		if g.State.IsDraw {
			stats.Draws++
			continue
		}
		if g.State.Winner == nil {
			continue
		}
		seat, ok := g.SeatOf(playerID)
		if ok && seat == *g.State.Winner {
			stats.Wins++
		}
	}
	stats.Losses = stats.TotalGames - stats.Wins - stats.Draws
	if stats.TotalGames > 0 {
		stats.WinRate = int(math.Round(float64(stats.Wins) / float64(stats.TotalGames) * 100))
	}

	return stats, nil
}

// History returns the player's completed games, newest first.
func (s *PlayerService) History(ctx context.Context, playerID string, limit int) ([]model.Game, error) {
	if _, err := s.players.GetByID(ctx, playerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.games.ListCompletedByPlayer(ctx, playerID, limit)
}

// GamesByUsername returns completed games matched on the denormalized
// usernames — the public "look up a player's games" view.
func (s *PlayerService) GamesByUsername(ctx context.Context, username string, limit int) ([]model.Game, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.games.ListCompletedByUsername(ctx, username, limit)
}
