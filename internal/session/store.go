package session

import (
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultTTL        = 15 * time.Minute
	DefaultMaxEntries = 256
)

var ErrClosed = errors.New("session store closed")

// Store holds the photo a phone uploads for a desktop session until the
// desktop picks it up. Entries expire after the TTL; the oldest entry is
// evicted once the store is full.
type Store struct {
	mu     sync.RWMutex
	images *expirable.LRU[string, string]
	closed bool
}

func NewStore(maxEntries int, ttl time.Duration) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{images: expirable.NewLRU[string, string](maxEntries, nil, ttl)}
}

func (s *Store) Put(sessionID, dataURL string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	s.images.Add(sessionID, dataURL)
	return nil
}

func (s *Store) Get(sessionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false
	}
	return s.images.Get(sessionID)
}

func (s *Store) Delete(sessionID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	s.images.Remove(sessionID)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.images.Len()
}

// Close drops every held image. The store rejects writes afterwards.
// The LRU's expiry goroutine has no stop hook and lives until process exit,
// so create one Store per process and Close it on shutdown.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.images.Purge()
	return nil
}
