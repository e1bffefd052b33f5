// internal/store/memory.go
//
// In-memory registry of live challenge sessions.
//
// Characteristics:
//   - Stores *game.Session values keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Every removal shuts the session down so no timer outlives it.
//   - Sweep drops finished sessions and sessions idle for longer than a TTL;
//     Janitor runs Sweep periodically until its context is cancelled.
//   - An unfinished session dropped for idleness counts as abandoned: it is
//     closed, so its host hooks record the outcome like a player close.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/starcipher/internal/game"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("not found")

// Store defines the registry interface for live sessions.
type Store interface {
	// Save adds or replaces a session.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Delete removes a session and shuts it down.
	Delete(ctx context.Context, id string) error

	// Len reports how many sessions are held.
	Len() int

	// Sweep removes finished sessions and sessions idle since before now-ttl.
	Sweep(now time.Time, ttl time.Duration) int

	// CloseAll shuts down and removes every session.
	CloseAll()
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex             // guards sessions map
	sessions map[string]*game.Session // keyed by Session.ID()
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*game.Session)}
}

// Save adds or updates the session in the map. A different session already
// stored under the same ID is shut down.
func (m *memory) Save(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	old := m.sessions[s.ID()]
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	if old != nil && old != s {
		old.Shutdown()
	}
	return nil
}

// Get looks up a session by ID.
func (m *memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Shutdown()
	return nil
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep evicts finished sessions once they have been idle for a grace
// period (so the reveal can still be fetched) and any session idle past ttl.
// Unfinished sessions are closed before shutdown.
func (m *memory) Sweep(now time.Time, ttl time.Duration) int {
	grace := min(ttl, time.Minute)

	var evicted []*game.Session
	m.mu.Lock()
	for id, s := range m.sessions {
		snap := s.Snapshot()
		idle := now.Sub(snap.UpdatedAt)
		if idle > ttl || (snap.Finished() && idle > grace) {
			delete(m.sessions, id)
			evicted = append(evicted, s)
		}
	}
	m.mu.Unlock()

	for _, s := range evicted {
		if s.Close() {
			log.Debug().Str("challengeId", s.ID()).Msg("closed abandoned challenge")
		}
		s.Shutdown()
	}
	return len(evicted)
}

func (m *memory) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*game.Session)
	m.mu.Unlock()
	for _, s := range all {
		s.Shutdown()
	}
}

// Janitor sweeps st every interval until ctx is done.
func Janitor(ctx context.Context, st Store, every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := st.Sweep(now, ttl); n > 0 {
				log.Debug().Int("evicted", n).Int("live", st.Len()).Msg("swept challenge sessions")
			}
		}
	}
}
