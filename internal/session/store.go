// Package session keys live search controllers by session ID so each
// connected presentation client observes its own state.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"weathernow/internal/search"
)

// ErrNotFound is returned when no session exists for a given ID.
var ErrNotFound = errors.New("session not found")

type entry struct {
	controller *search.Controller
	lastSeen   time.Time
}

// Store is a concurrency-safe in-memory session registry with retention:
// sessions idle longer than the TTL are evicted, and when the session cap is
// reached the least recently used session makes room for the new one.
type Store struct {
	mu sync.Mutex

	sessions map[string]*entry

	maxSessions int           // 0 = unlimited
	ttl         time.Duration // 0 = no idle eviction

	newController func() *search.Controller
	now           func() time.Time
}

// NewStore creates a Store that builds controllers with the given factory.
func NewStore(maxSessions int, ttl time.Duration, factory func() *search.Controller) *Store {
	return &Store{
		sessions:      make(map[string]*entry),
		maxSessions:   maxSessions,
		ttl:           ttl,
		newController: factory,
		now:           time.Now,
	}
}

// Create registers a new session and returns its ID.
func (s *Store) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.evictOldestLocked()
	}

	id := uuid.NewString()
	s.sessions[id] = &entry{
		controller: s.newController(),
		lastSeen:   s.now(),
	}
	return id
}

// Get returns the controller for a session and marks the session as active.
func (s *Store) Get(id string) (*search.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = s.now()
	return e.controller, nil
}

// Delete removes a session and closes its controller.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	e.controller.Close()
	delete(s.sessions, id)
	return nil
}

// Each calls fn for every live controller. The session set is snapshotted
// under the lock; fn runs outside it.
func (s *Store) Each(fn func(id string, c *search.Controller)) {
	s.mu.Lock()
	s.evictExpiredLocked()
	type pair struct {
		id string
		c  *search.Controller
	}
	live := make([]pair, 0, len(s.sessions))
	for id, e := range s.sessions {
		live = append(live, pair{id, e.controller})
	}
	s.mu.Unlock()

	for _, p := range live {
		fn(p.id, p.c)
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	return len(s.sessions)
}

func (s *Store) evictExpiredLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			e.controller.Close()
			delete(s.sessions, id)
		}
	}
}

func (s *Store) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, e := range s.sessions {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID = id
			oldest = e.lastSeen
		}
	}
	if oldestID != "" {
		s.sessions[oldestID].controller.Close()
		delete(s.sessions, oldestID)
	}
}
