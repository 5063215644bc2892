package session

import (
	"sync"
	"time"
)

// Store keeps sessions in memory keyed by user id.
// Idle sessions expire after TTL; when MaxSize is reached the least recently
// used session is evicted.
type Store struct {
	// data stores the sessions
	data map[string]*entry

	// mu protects concurrent access to data
	mu sync.Mutex

	config StoreConfig

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	wg            sync.WaitGroup
}

type entry struct {
	session    *Session
	expiresAt  time.Time
	accessedAt time.Time
}

// StoreConfig holds configuration for the session store.
type StoreConfig struct {
	// MaxSize is the maximum number of sessions (0 = unlimited)
	MaxSize int

	// TTL is how long an idle session is kept
	TTL time.Duration

	// CleanupInterval is how often expired sessions are swept
	CleanupInterval time.Duration
}

// NewStore creates a session store and starts its background sweeper.
func NewStore(config StoreConfig) *Store {
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}

	s := &Store{
		data:          make(map[string]*entry),
		config:        config,
		stopCleanup:   make(chan struct{}),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
	}

	s.wg.Add(1)
	go s.cleanup()

	return s
}

// GetOrCreate returns the live session for userID, creating one if needed.
// Every call extends the session's TTL.
func (s *Store) GetOrCreate(userID string) *Session {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.data[userID]; ok && now.Before(e.expiresAt) {
		e.accessedAt = now
		e.expiresAt = now.Add(s.config.TTL)
		return e.session
	}

	if s.config.MaxSize > 0 && len(s.data) >= s.config.MaxSize {
		s.evictLRU()
	}

	sess := New(userID)
	s.data[userID] = &entry{
		session:    sess,
		expiresAt:  now.Add(s.config.TTL),
		accessedAt: now,
	}
	return sess
}

// Get returns the live session for userID without creating one.
func (s *Store) Get(userID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[userID]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(s.data, userID)
		return nil, false
	}
	return e.session, true
}

// Delete drops the session for userID.
func (s *Store) Delete(userID string) {
	s.mu.Lock()
	delete(s.data, userID)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Close stops the sweeper and drops every session.
func (s *Store) Close() error {
	s.cleanupTicker.Stop()
	close(s.stopCleanup)
	s.wg.Wait()

	s.mu.Lock()
	s.data = make(map[string]*entry)
	s.mu.Unlock()

	return nil
}

// evictLRU must be called with mu held.
func (s *Store) evictLRU() {
	var lruKey string
	var lruTime time.Time

	for k, e := range s.data {
		if lruKey == "" || e.accessedAt.Before(lruTime) {
			lruKey = k
			lruTime = e.accessedAt
		}
	}

	if lruKey != "" {
		delete(s.data, lruKey)
	}
}

func (s *Store) cleanup() {
	defer s.wg.Done()

	for {
		select {
		case <-s.cleanupTicker.C:
			s.removeExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *Store) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, key)
		}
	}
}
