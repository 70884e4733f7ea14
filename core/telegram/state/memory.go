package state

import (
	"context"
	"sync"
	"time"
)

// Cloner is implemented by session types that hold references (slices,
// pointers). MemoryStore clones on Save and Load so callers never share
// mutable state with the store.
type Cloner[T any] interface {
	Clone() T
}

type memoryEntry[T any] struct {
	session T
	touched time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
// A positive ttl expires sessions that were not saved for that long.
type MemoryStore[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]memoryEntry[T]
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore constructs an in-memory Store.
func NewMemoryStore[T any](ttl time.Duration) *MemoryStore[T] {
	return &MemoryStore[T]{
		sessions: make(map[int64]memoryEntry[T]),
		ttl:      ttl,
		now:      time.Now,
	}
}

func clone[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}

// Load returns the session for a user if it exists and has not expired.
func (m *MemoryStore[T]) Load(_ context.Context, userID int64) (T, bool, error) {
	m.mu.RLock()
	e, ok := m.sessions[userID]
	m.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false, nil
	}
	if m.expired(e) {
		m.mu.Lock()
		if cur, still := m.sessions[userID]; still && m.expired(cur) {
			delete(m.sessions, userID)
		}
		m.mu.Unlock()
		return zero, false, nil
	}
	return clone(e.session), true, nil
}

// Save stores a copy of session for the user.
func (m *MemoryStore[T]) Save(_ context.Context, userID int64, session T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = memoryEntry[T]{session: clone(session), touched: m.now()}
	return nil
}

// Delete removes the session for a user.
func (m *MemoryStore[T]) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// Sweep drops every expired session and returns how many were removed.
func (m *MemoryStore[T]) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.sessions {
		if m.expired(e) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

func (m *MemoryStore[T]) expired(e memoryEntry[T]) bool {
	return m.ttl > 0 && m.now().Sub(e.touched) > m.ttl
}
