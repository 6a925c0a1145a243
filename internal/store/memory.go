// internal/store/memory.go
//
// In-memory Store of live games.
// Games are held only while being played: state is lost on restart and idle
// games are swept by the server's janitor.
//
// Characteristics:
//   - Stores *game.Game keyed by ID.
//   - Concurrency-safe via RWMutex; each Game guards its own state.
//   - Get returns ErrNotFound for unknown IDs.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/vocab-jumble/internal/game"
)

// ErrNotFound is returned by Get for an unknown game id.
var ErrNotFound = errors.New("game not found")

// Store holds live games.
type Store interface {
	// Save adds or replaces a game.
	Save(ctx context.Context, g *game.Game) error

	// Get retrieves a game by ID.
	Get(ctx context.Context, id string) (*game.Game, error)

	// Sweep drops games whose ExpiresAt(ttl) is before now and reports how
	// many were removed.
	Sweep(ctx context.Context, now time.Time, ttl time.Duration) int
}

type memory struct {
	mu    sync.RWMutex
	games map[string]*game.Game
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]*game.Game)}
}

func (m *memory) Save(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Sweep(ctx context.Context, now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, g := range m.games {
		if g.ExpiresAt(ttl).Before(now) {
			delete(m.games, id)
			n++
		}
	}
	return n
}
