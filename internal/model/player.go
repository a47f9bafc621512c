// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Player represents a registered player identity.
//
// There is no password or credential here — identity is claimed by username
// alone. The UNIQUE constraint on username in the store ensures one username
// maps to exactly one player.
//
// The struct tags are snake_case because that's the wire format the frontend
// speaks; everything this API returns uses the same convention.
type Player struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerStats aggregates a player's completed games.
// WinRate is a whole-number percentage, 0 when the player has no completed games.
type PlayerStats struct {
	Username   string `json:"username"`
	TotalGames int    `json:"total_games"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Draws      int    `json:"draws"`
	WinRate    int    `json:"win_rate"`
}
