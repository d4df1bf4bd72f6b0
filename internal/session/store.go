// Package session holds the current authenticated identity and tells
// interested components whenever it changes.
package session

import (
	"log/slog"
	"sync"

	"github.com/mcoot/teachkit/internal/model"
)

// Observer is notified with the new session (nil when cleared)
type Observer func(*model.Session)

// Store is the single source of truth for who the user is and what role they have.
// All writes go through SetSession; readers subscribe for change notifications.
type Store struct {
	mu        sync.RWMutex
	current   *model.Session
	observers map[uint64]Observer
	order     []uint64
	nextID    uint64

	// notifyMu serialises notification rounds so observers see changes in write order
	notifyMu sync.Mutex

	logger *slog.Logger
}

// New creates an empty Store (Guest)
func New(logger *slog.Logger) *Store {
	return &Store{
		observers: make(map[uint64]Observer),
		logger:    logger.With(slog.String("component", "session-store")),
	}
}

// SetSession replaces the current session and notifies observers.
// A nil or incomplete session clears the store.
func (s *Store) SetSession(sess *model.Session) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if sess != nil && !sess.Complete() {
		s.logger.Warn("discarding incomplete session", slog.String("username", sess.Username))
		sess = nil
	}

	s.mu.Lock()
	s.current = sess.Clone()
	observers := make([]Observer, 0, len(s.order))
	for _, id := range s.order {
		observers = append(observers, s.observers[id])
	}
	s.mu.Unlock()

	if sess == nil {
		s.logger.Debug("session cleared")
	} else {
		s.logger.Debug("session set",
			slog.String("username", sess.Username),
			slog.String("role", string(sess.Role)))
	}

	for _, obs := range observers {
		obs(sess.Clone())
	}
}

// GetSession returns a copy of the current session, or nil
func (s *Store) GetSession() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// GetRole returns the current role, or Guest if there is no session
func (s *Store) GetRole() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return model.RoleGuest
	}
	return s.current.Role
}

// Authenticated reports whether a session is present
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Subscribe registers an observer and returns a function that removes it
func (s *Store) Subscribe(obs Observer) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = obs
	s.order = append(s.order, id)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers, id)
			for i, oid := range s.order {
				if oid == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// ObserverCount returns the number of subscribed observers
func (s *Store) ObserverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}
