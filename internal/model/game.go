package model

import "time"

// Mode distinguishes the two ways a game can be played.
//
// The mode is consulted at exactly three decision points:
// join eligibility (local games can't be joined), turn ownership
// (local games have one human driving both symbols, so no check),
// and broadcasting (local games have no remote peer to notify).
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeOnline Mode = "online"
)

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m == ModeLocal || m == ModeOnline
}

// Status is the game lifecycle state. Transitions only move forward:
// waiting → in_progress → completed. A completed game is terminal.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Symbol is a seat marker on the board.
type Symbol string

const (
	SymbolX Symbol = "X"
	SymbolO Symbol = "O"
)

// Other returns the opposing symbol.
func (s Symbol) Other() Symbol {
	if s == SymbolX {
		return SymbolO
	}
	return SymbolX
}

// Board is the 9-cell grid, row-major. A nil cell is empty.
// Fixed-size array (not a slice) so every board is exactly 9 cells
// and copies are value copies — handy for replay snapshots.
type Board [9]*Symbol

// GameState is the live board state embedded in a Game.
// Winner and IsDraw are mutually exclusive and both unset until the
// game reaches StatusCompleted. CurrentTurn is frozen on completion.
type GameState struct {
	Board       Board   `json:"board"`
	CurrentTurn Symbol  `json:"current_turn"`
	Winner      *Symbol `json:"winner"`
	WinningLine []int   `json:"winning_line"`
	IsDraw      bool    `json:"is_draw"`
}

// NewGameState returns the initial state: empty board, X to move.
func NewGameState() GameState {
	return GameState{CurrentTurn: SymbolX}
}

// GameMove is one entry in a game's append-only move log.
// Moves are never mutated or removed; log order is turn order.
type GameMove struct {
	PlayerID  string    `json:"player_id"`
	Symbol    Symbol    `json:"symbol"`
	Position  int       `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// Game is a single match between two seats.
//
// Usernames are denormalized alongside the player IDs so a game document
// is self-contained; a username rename must cascade into these copies.
// PlayerO fields are nil until someone joins (online) or permanently nil
// with a display-only "Player O" username (local).
type Game struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	Mode            Mode       `json:"mode"`
	Status          Status     `json:"status"`
	PlayerXID       string     `json:"player_x_id"`
	PlayerXUsername string     `json:"player_x_username"`
	PlayerOID       *string    `json:"player_o_id"`
	PlayerOUsername *string    `json:"player_o_username"`
	State           GameState  `json:"state"`
	Moves           []GameMove `json:"moves"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

// IsParticipant reports whether playerID occupies either seat.
func (g *Game) IsParticipant(playerID string) bool {
	if g.PlayerXID == playerID {
		return true
	}
	return g.PlayerOID != nil && *g.PlayerOID == playerID
}

// SeatOf returns the symbol playerID holds, or false if they hold neither.
// In local mode the single participant is the X seat but drives both
// symbols; turn-ownership checks don't apply there.
func (g *Game) SeatOf(playerID string) (Symbol, bool) {
	if g.PlayerXID == playerID {
		return SymbolX, true
	}
	if g.PlayerOID != nil && *g.PlayerOID == playerID {
		return SymbolO, true
	}
	return "", false
}
