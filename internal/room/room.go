// Package room maps match ids to matches and player ids to live connections.
package room

import (
	"sync"

	"github.com/google/uuid"

	"github.com/LemmyAI/tankduel/internal/game"
	"github.com/LemmyAI/tankduel/internal/transport"
)

// Registry owns every live match and every player's connection.
//
// Lock order is match lock, then connMu. mu is never held while taking a match lock.
type Registry struct {
	mu      sync.RWMutex
	matches map[string]*game.Match

	connMu sync.RWMutex
	conns  map[string]transport.Conn

	config game.Config

	// Callbacks
	onMatchRemoved func(matchID string)
}

// NewRegistry creates an empty registry whose matches use config.
func NewRegistry(config game.Config) *Registry {
	return &Registry{
		matches: make(map[string]*game.Match),
		conns:   make(map[string]transport.Conn),
		config:  config,
	}
}

// newMatchID returns a time-ordered id with a random tail, unique for the process lifetime.
func newMatchID() string {
	return "game_" + uuid.Must(uuid.NewV7()).String()
}

func newPlayerID() string {
	return "player_" + uuid.Must(uuid.NewV7()).String()
}

// OnMatchRemoved sets a callback for when the last player leaves a match.
func (r *Registry) OnMatchRemoved(callback func(matchID string)) {
	r.onMatchRemoved = callback
}

// CreateMatch allocates a new match with fresh terrain and stores it.
func (r *Registry) CreateMatch() (string, *game.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := newMatchID()
	for r.matches[id] != nil {
		id = newMatchID()
	}
	m := game.NewMatch(id, r.config)
	r.matches[id] = m
	return id, m
}

// Match retrieves a match by id.
func (r *Registry) Match(matchID string) *game.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.matches[matchID]
}

// JoinedFunc runs under the match lock right after a successful join, so the
// replies it sends precede any later frame for the match.
type JoinedFunc func(m *game.Match, playerID string, playerIndex int)

// JoinMatch adds a new player to a match and records its connection.
// The capacity check and the append happen under the match lock. joined may be nil.
func (r *Registry) JoinMatch(matchID string, conn transport.Conn, joined JoinedFunc) (string, int, *game.Match, error) {
	m := r.Match(matchID)
	if m == nil {
		return "", -1, nil, ErrMatchNotFound
	}

	m.Lock()
	defer m.Unlock()

	// Removed between lookup and lock.
	if m.Closed() {
		return "", -1, nil, ErrMatchNotFound
	}
	if m.IsFull() {
		return "", -1, nil, ErrMatchFull
	}

	playerID := newPlayerID()
	idx := m.AddPlayer(playerID)

	r.connMu.Lock()
	r.conns[playerID] = conn
	r.connMu.Unlock()

	if joined != nil {
		joined(m, playerID, idx)
	}
	return playerID, idx, m, nil
}

// RemovePlayer drops a player's connection and match slot. If the match is left
// empty it is closed and deleted. It returns the match (nil if unknown) and how
// many participants remain.
func (r *Registry) RemovePlayer(playerID, matchID string) (*game.Match, int) {
	r.connMu.Lock()
	delete(r.conns, playerID)
	r.connMu.Unlock()

	m := r.Match(matchID)
	if m == nil {
		return nil, 0
	}

	m.Lock()
	remaining := m.RemovePlayer(playerID)
	if remaining == 0 {
		m.Close()
	}
	m.Unlock()

	if remaining == 0 {
		r.mu.Lock()
		if r.matches[matchID] == m {
			delete(r.matches, matchID)
		}
		r.mu.Unlock()

		if r.onMatchRemoved != nil {
			r.onMatchRemoved(matchID)
		}
	}
	return m, remaining
}

// Conn returns the live connection of a player, or nil.
func (r *Registry) Conn(playerID string) transport.Conn {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	return r.conns[playerID]
}

// Count returns the number of live matches.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

// PlayerCount returns the number of connected players.
func (r *Registry) PlayerCount() int {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	return len(r.conns)
}

// Close closes every match, cancelling pending shots.
func (r *Registry) Close() {
	r.mu.Lock()
	matches := make([]*game.Match, 0, len(r.matches))
	for id, m := range r.matches {
		matches = append(matches, m)
		delete(r.matches, id)
	}
	r.mu.Unlock()

	for _, m := range matches {
		m.Lock()
		m.Close()
		m.Unlock()
	}
}
