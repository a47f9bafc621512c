package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/tictactoe/internal/apperror"
	"github.com/sakif/tictactoe/internal/model"
)

func TestGameCreate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")

	g := createTestGame(t, db.Games(), "ABC234", alice, nil)

	if g.ID == "" {
		t.Error("Create() did not set game.ID")
	}
	if g.CreatedAt.IsZero() {
		t.Error("Create() did not set game.CreatedAt")
	}
}

func TestGameCreate_DuplicateCode(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")
	createTestGame(t, db.Games(), "ABC234", alice, nil)

	dup := &model.Game{
		Code:            "ABC234",
		Mode:            model.ModeOnline,
		Status:          model.StatusWaiting,
		PlayerXID:       alice.ID,
		PlayerXUsername: alice.Username,
		State:           model.NewGameState(),
		Moves:           []model.GameMove{},
	}
	err := db.Games().Create(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

func TestGameGetByID_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")
	bob := createTestPlayer(t, db.Players(), "bob")
	created := createTestGame(t, db.Games(), "ABC234", alice, bob)

	got, err := db.Games().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Code != "ABC234" || got.Mode != model.ModeOnline || got.Status != model.StatusInProgress {
		t.Errorf("got %s/%s/%s, want ABC234/online/in_progress", got.Code, got.Mode, got.Status)
	}
	if got.PlayerOID == nil || *got.PlayerOID != bob.ID {
		t.Errorf("PlayerOID = %v, want %s", got.PlayerOID, bob.ID)
	}
	if got.State.CurrentTurn != model.SymbolX {
		t.Errorf("CurrentTurn = %s, want X", got.State.CurrentTurn)
	}
	for i, cell := range got.State.Board {
		if cell != nil {
			t.Errorf("cell %d = %v, want empty", i, *cell)
		}
	}

	if _, err := db.Games().GetByID(context.Background(), "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGameGetByCode(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")
	created := createTestGame(t, db.Games(), "ABC234", alice, nil)

	got, err := db.Games().GetByCode(context.Background(), "ABC234")
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %s, want %s", got.ID, created.ID)
	}

	if _, err := db.Games().GetByCode(context.Background(), "ZZZZZZ"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByCode(ZZZZZZ) error = %v, want ErrNotFound", err)
	}
}

func TestGameListWaiting(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")
	bob := createTestPlayer(t, db.Players(), "bob")

	waiting := createTestGame(t, db.Games(), "AAAAAA", alice, nil)
	createTestGame(t, db.Games(), "BBBBBB", alice, bob) // in progress, excluded

	// Local games never show up in the lobby even while unfinished.
	local := &model.Game{
		Code:            "CCCCCC",
		Mode:            model.ModeLocal,
		Status:          model.StatusWaiting,
		PlayerXID:       alice.ID,
		PlayerXUsername: alice.Username,
		State:           model.NewGameState(),
		Moves:           []model.GameMove{},
	}
	if err := db.Games().Create(context.Background(), local); err != nil {
		t.Fatalf("Create(local) error = %v", err)
	}

	got, err := db.Games().ListWaiting(context.Background())
	if err != nil {
		t.Fatalf("ListWaiting() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != waiting.ID {
		t.Fatalf("ListWaiting() = %d games, want exactly the waiting online game", len(got))
	}
}

func TestGameListCompletedByPlayer(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")
	bob := createTestPlayer(t, db.Players(), "bob")

	older := createTestGame(t, db.Games(), "AAAAAA", alice, bob)
	newer := createTestGame(t, db.Games(), "BBBBBB", bob, alice)
	createTestGame(t, db.Games(), "CCCCCC", alice, bob) // never completed

	base := time.Now().UTC()
	completeGame(t, db.Games(), older, model.SymbolX, base.Add(-time.Hour))
	completeGame(t, db.Games(), newer, "", base)

	got, err := db.Games().ListCompletedByPlayer(context.Background(), alice.ID, 0)
	if err != nil {
		t.Fatalf("ListCompletedByPlayer() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d games, want 2", len(got))
	}
	// Most recently completed first.
	if got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Errorf("order = [%s %s], want [%s %s]", got[0].ID, got[1].ID, newer.ID, older.ID)
	}

	limited, err := db.Games().ListCompletedByPlayer(context.Background(), alice.ID, 1)
	if err != nil {
		t.Fatalf("ListCompletedByPlayer(limit=1) error = %v", err)
	}
	if len(limited) != 1 || limited[0].ID != newer.ID {
		t.Errorf("limit=1 returned %d games, want just the newest", len(limited))
	}
}

func TestGameListCompletedByUsername(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")
	bob := createTestPlayer(t, db.Players(), "bob")

	g := createTestGame(t, db.Games(), "AAAAAA", alice, bob)
	completeGame(t, db.Games(), g, model.SymbolO, time.Now().UTC())

	for _, name := range []string{"alice", "bob"} {
		got, err := db.Games().ListCompletedByUsername(context.Background(), name, 0)
		if err != nil {
			t.Fatalf("ListCompletedByUsername(%s) error = %v", name, err)
		}
		if len(got) != 1 {
			t.Errorf("ListCompletedByUsername(%s) = %d games, want 1", name, len(got))
		}
	}

	got, err := db.Games().ListCompletedByUsername(context.Background(), "carol", 0)
	if err != nil {
		t.Fatalf("ListCompletedByUsername(carol) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListCompletedByUsername(carol) = %d games, want 0", len(got))
	}
}

func TestGameUpdate_PersistsStateAndMoves(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")
	bob := createTestPlayer(t, db.Players(), "bob")
	g := createTestGame(t, db.Games(), "AAAAAA", alice, bob)

	x := model.SymbolX
	g.State.Board[4] = &x
	g.State.CurrentTurn = model.SymbolO
	g.Moves = append(g.Moves, model.GameMove{
		PlayerID:  alice.ID,
		Symbol:    model.SymbolX,
		Position:  4,
		Timestamp: time.Now().UTC(),
	})
	if err := db.Games().Update(context.Background(), g); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.Games().GetByID(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.State.Board[4] == nil || *got.State.Board[4] != model.SymbolX {
		t.Errorf("board[4] = %v, want X", got.State.Board[4])
	}
	if got.State.CurrentTurn != model.SymbolO {
		t.Errorf("CurrentTurn = %s, want O", got.State.CurrentTurn)
	}
	if len(got.Moves) != 1 || got.Moves[0].Position != 4 || got.Moves[0].PlayerID != alice.ID {
		t.Errorf("moves = %+v, want the single X move at 4", got.Moves)
	}
}

func TestGameUpdate_FillsOpponentSeat(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")
	bob := createTestPlayer(t, db.Players(), "bob")
	g := createTestGame(t, db.Games(), "AAAAAA", alice, nil)

	g.Status = model.StatusInProgress
	g.PlayerOID = &bob.ID
	g.PlayerOUsername = &bob.Username
	if err := db.Games().Update(context.Background(), g); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := db.Games().GetByID(context.Background(), g.ID)
	if got.Status != model.StatusInProgress {
		t.Errorf("Status = %s, want in_progress", got.Status)
	}
	if got.PlayerOID == nil || *got.PlayerOID != bob.ID {
		t.Errorf("PlayerOID = %v, want %s", got.PlayerOID, bob.ID)
	}
	if got.PlayerOUsername == nil || *got.PlayerOUsername != "bob" {
		t.Errorf("PlayerOUsername = %v, want bob", got.PlayerOUsername)
	}
}

func TestGameUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	g := &model.Game{
		ID:     "missing",
		Status: model.StatusCompleted,
		State:  model.NewGameState(),
		Moves:  []model.GameMove{},
	}
	err := db.Games().Update(context.Background(), g)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestGameCompleted_RoundTripOutcome(t *testing.T) {
	db := newTestDB(t)
	alice := createTestPlayer(t, db.Players(), "alice")
	bob := createTestPlayer(t, db.Players(), "bob")
	g := createTestGame(t, db.Games(), "AAAAAA", alice, bob)

	at := time.Now().UTC().Truncate(time.Second)
	completeGame(t, db.Games(), g, model.SymbolX, at)

	got, err := db.Games().GetByID(context.Background(), g.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}
	if got.State.Winner == nil || *got.State.Winner != model.SymbolX {
		t.Errorf("Winner = %v, want X", got.State.Winner)
	}
	if len(got.State.WinningLine) != 3 {
		t.Errorf("WinningLine = %v, want 3 indices", got.State.WinningLine)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(at) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, at)
	}
}
