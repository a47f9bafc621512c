// Package memory implements the repository interfaces with plain in-process
// maps. It is the fallback storage backend: when the SQLite database can't be
// opened at startup, the server runs on this store instead of crashing.
// Everything here is lost on restart — the trade is availability over
// durability, and the startup log says so loudly.
//
// A single RWMutex guards both maps. That also gives Rename its atomicity:
// the player row and every denormalized username copy change under one lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/tictactoe/internal/apperror"
	"github.com/sakif/tictactoe/internal/model"
	"github.com/sakif/tictactoe/internal/repository"
)

// Store holds players and games in memory.
type Store struct {
	mu      sync.RWMutex
	players map[string]*model.Player
	games   map[string]*model.Game
}

var _ repository.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		players: make(map[string]*model.Player),
		games:   make(map[string]*model.Game),
	}
}

// Players returns the player repository view of the store.
func (s *Store) Players() repository.PlayerRepository { return &playerStore{s} }

// Games returns the game repository view of the store.
func (s *Store) Games() repository.GameRepository { return &gameStore{s} }

// Close is a no-op; there is nothing to flush.
func (s *Store) Close() error { return nil }

type playerStore struct{ *Store }

func (p *playerStore) Create(_ context.Context, player *model.Player) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.players {
		if existing.Username == player.Username {
			return apperror.Conflict(fmt.Sprintf("username %q already taken", player.Username))
		}
	}

	player.ID = xid.New().String()
	player.CreatedAt = time.Now().UTC()

	stored := *player
	p.players[player.ID] = &stored
	return nil
}

func (p *playerStore) GetByID(_ context.Context, id string) (*model.Player, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	player, ok := p.players[id]
	if !ok {
		return nil, apperror.NotFound("player", id)
	}
	result := *player
	return &result, nil
}

func (p *playerStore) GetByUsername(_ context.Context, username string) (*model.Player, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, player := range p.players {
		if player.Username == username {
			result := *player
			return &result, nil
		}
	}
	return nil, apperror.NotFound("player", username)
}

func (p *playerStore) Search(_ context.Context, query string, limit int) ([]model.Player, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	q := strings.ToLower(query)
	results := []model.Player{}
	for _, player := range p.players {
		if strings.Contains(strings.ToLower(player.Username), q) {
			results = append(results, *player)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Username < results[j].Username })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (p *playerStore) Rename(_ context.Context, playerID, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	player, ok := p.players[playerID]
	if !ok {
		return apperror.NotFound("player", playerID)
	}
	for id, existing := range p.players {
		if id != playerID && existing.Username == username {
			return apperror.Conflict(fmt.Sprintf("username %q already taken", username))
		}
	}

	player.Username = username
	for _, game := range p.games {
		if game.PlayerXID == playerID {
			game.PlayerXUsername = username
		}
		if game.PlayerOID != nil && *game.PlayerOID == playerID {
			name := username
			game.PlayerOUsername = &name
		}
	}
	return nil
}

type gameStore struct{ *Store }

func (g *gameStore) Create(_ context.Context, game *model.Game) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, existing := range g.games {
		if existing.Code == game.Code {
			return apperror.Conflict(fmt.Sprintf("game code %q already in use", game.Code))
		}
	}

	game.ID = xid.New().String()
	game.CreatedAt = time.Now().UTC()
	if game.Moves == nil {
		game.Moves = []model.GameMove{}
	}

	stored := cloneGame(game)
	g.games[game.ID] = stored
	return nil
}

func (g *gameStore) GetByID(_ context.Context, id string) (*model.Game, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	game, ok := g.games[id]
	if !ok {
		return nil, apperror.NotFound("game", id)
	}
	return cloneGame(game), nil
}

func (g *gameStore) GetByCode(_ context.Context, code string) (*model.Game, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, game := range g.games {
		if game.Code == code {
			return cloneGame(game), nil
		}
	}
	return nil, apperror.NotFound("game", code)
}

func (g *gameStore) ListWaiting(_ context.Context) ([]model.Game, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	games := []model.Game{}
	for _, game := range g.games {
		if game.Status == model.StatusWaiting && game.Mode == model.ModeOnline {
			games = append(games, *cloneGame(game))
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i].CreatedAt.After(games[j].CreatedAt) })
	return games, nil
}

func (g *gameStore) ListCompletedByPlayer(_ context.Context, playerID string, limit int) ([]model.Game, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.listCompleted(limit, func(game *model.Game) bool {
		return game.PlayerXID == playerID ||
			(game.PlayerOID != nil && *game.PlayerOID == playerID)
	}), nil
}

func (g *gameStore) ListCompletedByUsername(_ context.Context, username string, limit int) ([]model.Game, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.listCompleted(limit, func(game *model.Game) bool {
		return game.PlayerXUsername == username ||
			(game.PlayerOUsername != nil && *game.PlayerOUsername == username)
	}), nil
}

// listCompleted must be called with at least a read lock held.
func (g *gameStore) listCompleted(limit int, match func(*model.Game) bool) []model.Game {
	games := []model.Game{}
	for _, game := range g.games {
		if game.Status == model.StatusCompleted && match(game) {
			games = append(games, *cloneGame(game))
		}
	}
	sort.Slice(games, func(i, j int) bool {
		return sortTime(&games[i]).After(sortTime(&games[j]))
	})
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games
}

func sortTime(game *model.Game) time.Time {
	if game.CompletedAt != nil {
		return *game.CompletedAt
	}
	return game.CreatedAt
}

func (g *gameStore) Update(_ context.Context, game *model.Game) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.games[game.ID]; !ok {
		return apperror.NotFound("game", game.ID)
	}
	g.games[game.ID] = cloneGame(game)
	return nil
}

// cloneGame deep-copies a game so callers can't mutate stored state through
// shared pointers or the moves slice.
func cloneGame(game *model.Game) *model.Game {
	clone := *game

	if game.PlayerOID != nil {
		v := *game.PlayerOID
		clone.PlayerOID = &v
	}
	if game.PlayerOUsername != nil {
		v := *game.PlayerOUsername
		clone.PlayerOUsername = &v
	}
	if game.CompletedAt != nil {
		v := *game.CompletedAt
		clone.CompletedAt = &v
	}
	if game.State.Winner != nil {
		v := *game.State.Winner
		clone.State.Winner = &v
	}
	if game.State.WinningLine != nil {
		clone.State.WinningLine = append([]int(nil), game.State.WinningLine...)
	}
	for i, cell := range game.State.Board {
		if cell != nil {
			v := *cell
			clone.State.Board[i] = &v
		}
	}
	clone.Moves = append([]model.GameMove(nil), game.Moves...)

	return &clone
}
