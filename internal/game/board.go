// Package game holds the pure rules of tic-tac-toe: board evaluation and
// join-code generation. Nothing here touches storage, HTTP, or the clock —
// every function is deterministic given its inputs (code generation aside,
// which is deliberately random).
package game

import "github.com/sakif/tictactoe/internal/model"

// WinningLines are the 8 ways to win, checked in this fixed order:
// three rows, three columns, two diagonals. Evaluate returns the first
// line that matches, so the order is part of the observable behaviour.
var WinningLines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Evaluate inspects a board and reports the outcome:
//   - a winner and the winning line's cell indices, if some line is
//     fully occupied by one symbol
//   - a draw, if the board is full with no winner
//   - neither, if the game should continue
//
// Winner and draw are mutually exclusive by construction: a full board
// with a winning line reports the win, not the draw.
func Evaluate(board model.Board) (winner *model.Symbol, line []int, draw bool) {
	for _, l := range WinningLines {
		a, b, c := board[l[0]], board[l[1]], board[l[2]]
		if a != nil && b != nil && c != nil && *a == *b && *b == *c {
			s := *a
			return &s, []int{l[0], l[1], l[2]}, false
		}
	}
	for _, cell := range board {
		if cell == nil {
			return nil, nil, false
		}
	}
	return nil, nil, true
}
