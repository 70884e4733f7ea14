package state

import (
	"context"
	"errors"
	"sync"
)

// ErrInvalidSession is returned when a stored session cannot be decoded.
var ErrInvalidSession = errors.New("state: invalid session")

// Store loads and saves one session per Telegram user.
// Load reports ok=false when the user has no session (idle).
type Store[T any] interface {
	Load(ctx context.Context, userID int64) (T, bool, error)
	Save(ctx context.Context, userID int64, session T) error
	Delete(ctx context.Context, userID int64) error
}

// KeyedMutex serializes work per user id while letting different users
// proceed in parallel. Entries are dropped once no goroutine holds or waits
// for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*keyedEntry)}
}

// Lock blocks until the lock for id is held and returns its release func.
func (k *KeyedMutex) Lock(id int64) func() {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &keyedEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

// Len reports how many ids currently have a live lock entry.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
