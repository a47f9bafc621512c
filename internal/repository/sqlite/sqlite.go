// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C
// compiler installed and cross-compilation becomes painful. modernc.org/sqlite
// is a pure Go translation of the SQLite C code — no C compiler needed, works
// everywhere Go works.
//
// Game state and the move log are stored as JSON text columns. They are only
// ever read and written whole, alongside the row that owns them, so there is
// nothing to gain from flattening them into relational tables. Everything we
// filter on (status, code, participant ids, usernames) has its own column.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/sakif/tictactoe/internal/repository"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository accessors.
type DB struct {
	conn *sql.DB
}

var _ repository.Store = (*DB)(nil)

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/tictactoe.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite allows one writer at a time; a single pooled connection avoids
	// SQLITE_BUSY under concurrent writes and makes ":memory:" behave (each
	// pool connection would otherwise get its own private in-memory DB).
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is happening.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Players returns the player repository backed by this database.
func (db *DB) Players() repository.PlayerRepository {
	return &PlayerDB{conn: db.conn}
}

// Games returns the game repository backed by this database.
func (db *DB) Games() repository.GameRepository {
	return &GameDB{conn: db.conn}
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs all database migrations.
// CREATE TABLE IF NOT EXISTS is idempotent — safe on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id         TEXT PRIMARY KEY,
			username   TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating players table: %w", err)
	}

	// Codes are globally unique across all games, completed ones included.
	// Games are never deleted, so a code is never reused.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id                TEXT PRIMARY KEY,
			code              TEXT NOT NULL UNIQUE,
			mode              TEXT NOT NULL,
			status            TEXT NOT NULL,
			player_x_id       TEXT NOT NULL,
			player_x_username TEXT NOT NULL,
			player_o_id       TEXT,
			player_o_username TEXT,
			state             TEXT NOT NULL,
			moves             TEXT NOT NULL DEFAULT '[]',
			created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at      DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_games_status   ON games(status);
		CREATE INDEX IF NOT EXISTS idx_games_player_x ON games(player_x_id);
		CREATE INDEX IF NOT EXISTS idx_games_player_o ON games(player_o_id);
	`)
	if err != nil {
		return fmt.Errorf("creating games table: %w", err)
	}

	return nil
}
