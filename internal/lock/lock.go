// Package lock provides per-game locking so that read-modify-write cycles
// on one game (join, move) are serialized. Two concurrent moves must never
// both validate against the same board snapshot; holding the game's lock for
// the whole load→validate→persist section prevents that. Different games
// never contend with each other.
package lock

import "sync"

// GameLock hands out one mutex per game ID, created on first use.
type GameLock struct {
	locks sync.Map // map[string]*sync.Mutex
}

// NewGameLock creates a new GameLock instance.
func NewGameLock() *GameLock {
	return &GameLock{}
}

func (gl *GameLock) get(gameID string) *sync.Mutex {
	if v, ok := gl.locks.Load(gameID); ok {
		return v.(*sync.Mutex)
	}
	// LoadOrStore handles the race where two goroutines both miss the Load.
	v, _ := gl.locks.LoadOrStore(gameID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Lock acquires the lock for a game.
func (gl *GameLock) Lock(gameID string) {
	gl.get(gameID).Lock()
}

// Unlock releases the lock for a game.
func (gl *GameLock) Unlock(gameID string) {
	if v, ok := gl.locks.Load(gameID); ok {
		v.(*sync.Mutex).Unlock()
	}
}

// WithLock executes fn while holding the game's lock.
func (gl *GameLock) WithLock(gameID string, fn func() error) error {
	gl.Lock(gameID)
	defer gl.Unlock(gameID)
	return fn()
}
