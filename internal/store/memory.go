// internal/store/memory.go
//
// In-memory registry of live game sessions.
//
// Characteristics:
//   - Stores *Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts; game state is never persisted.
//   - Sweep evicts idle sessions and closes their engines.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/memory-game/internal/game"
	"github.com/robalobadob/memory-game/internal/sound"
)

var ErrNotFound = errors.New("not found")

// Session is one live game plus the metadata the HTTP layer needs.
type Session struct {
	ID        string
	Engine    *game.Engine
	Sound     *sound.Notifier
	Variant   game.Variant
	OwnerID   string // user id, or anonymous id when Anonymous
	Anonymous bool
	DailyDate string // non-empty for daily-layout games
	StartedAt time.Time

	mu         sync.Mutex
	lastSeen   time.Time
	roundStart time.Time
}

// BeginRound records when the current deal started.
func (s *Session) BeginRound(t time.Time) {
	s.mu.Lock()
	s.roundStart = t
	s.mu.Unlock()
}

// RoundStart returns when the current deal started, falling back to
// StartedAt before the first BeginRound.
func (s *Session) RoundStart() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roundStart.IsZero() {
		return s.StartedAt
	}
	return s.roundStart
}

// Touch records activity on the session.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	s.lastSeen = t
	s.mu.Unlock()
}

// LastSeen returns the last recorded activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store defines the registry interface for live sessions.
type Store interface {
	// Save adds or replaces a session.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session and closes its engine.
	Delete(ctx context.Context, id string) error

	// Sweep evicts sessions idle since before cutoff and reports how many.
	Sweep(ctx context.Context, cutoff time.Time) int
}

type memory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session)}
}

func (m *memory) Save(ctx context.Context, s *Session) error {
	if s.LastSeen().IsZero() {
		s.Touch(time.Now())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
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
	s.Engine.Close()
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	var evicted []*Session
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			evicted = append(evicted, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range evicted {
		s.Engine.Close()
	}
	return len(evicted)
}
