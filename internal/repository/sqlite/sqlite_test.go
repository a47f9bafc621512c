package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/tictactoe/internal/model"
	"github.com/sakif/tictactoe/internal/repository"
)

// newTestDB returns a store backed by an in-memory database, closed when
// the test finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestPlayer(t *testing.T, players repository.PlayerRepository, username string) *model.Player {
	t.Helper()
	player := &model.Player{Username: username}
	if err := players.Create(context.Background(), player); err != nil {
		t.Fatalf("failed to create test player %q: %v", username, err)
	}
	return player
}

// createTestGame inserts an online game between x and o (o may be nil for a
// waiting game).
func createTestGame(t *testing.T, games repository.GameRepository, code string, x *model.Player, o *model.Player) *model.Game {
	t.Helper()
	g := &model.Game{
		Code:            code,
		Mode:            model.ModeOnline,
		Status:          model.StatusWaiting,
		PlayerXID:       x.ID,
		PlayerXUsername: x.Username,
		State:           model.NewGameState(),
		Moves:           []model.GameMove{},
	}
	if o != nil {
		g.Status = model.StatusInProgress
		g.PlayerOID = &o.ID
		g.PlayerOUsername = &o.Username
	}
	if err := games.Create(context.Background(), g); err != nil {
		t.Fatalf("failed to create test game %q: %v", code, err)
	}
	return g
}

// completeGame marks a game won by winner (or drawn if winner is empty) at
// the given time.
func completeGame(t *testing.T, games repository.GameRepository, g *model.Game, winner model.Symbol, at time.Time) {
	t.Helper()
	g.Status = model.StatusCompleted
	g.CompletedAt = &at
	if winner == "" {
		g.State.IsDraw = true
	} else {
		w := winner
		g.State.Winner = &w
		g.State.WinningLine = []int{0, 1, 2}
	}
	if err := games.Update(context.Background(), g); err != nil {
		t.Fatalf("failed to complete test game %s: %v", g.ID, err)
	}
}
