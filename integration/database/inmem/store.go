// Package inmem provides an in-memory session store for tests and local
// development. All operations are safe for concurrent use.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authgate/core/session"
)

// Store is a mutex-guarded in-memory implementation of session.Store.
type Store struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]session.Session
	byToken map[string]uuid.UUID
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		byID:    make(map[uuid.UUID]session.Session),
		byToken: make(map[string]uuid.UUID),
	}
}

// Create persists a new session.
func (s *Store) Create(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byToken[sess.HashedToken]; exists {
		return session.ErrDuplicateToken
	}

	s.byID[sess.ID] = clone(*sess)
	s.byToken[sess.HashedToken] = sess.ID
	return nil
}

// FindByHashedToken resolves a session by its token digest.
func (s *Store) FindByHashedToken(_ context.Context, hashedToken string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[hashedToken]
	if !ok {
		return nil, session.ErrNotFound
	}
	sess := clone(s.byID[id])
	return &sess, nil
}

// Update overwrites the session's mutable fields. Updating a session that
// is already gone is a silent no-op; last writer wins.
func (s *Store) Update(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[sess.ID]; !ok {
		return nil
	}
	s.byID[sess.ID] = clone(*sess)
	return nil
}

// Delete removes a session by ID, no-op when absent.
func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(id)
	return nil
}

// DeleteStale removes expired and, when lastSeenBefore is set, inactive
// sessions, optionally scoped to one principal.
func (s *Store) DeleteStale(_ context.Context, expiredBefore, lastSeenBefore time.Time, scope *session.PrincipalRef) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.byID {
		if scope != nil && sess.Principal != *scope {
			continue
		}

		stale := sess.ExpiresAt.Before(expiredBefore)
		if !stale && !lastSeenBefore.IsZero() {
			stale = sess.LastSeenAt.Before(lastSeenBefore)
		}
		if stale {
			s.remove(id)
			n++
		}
	}
	return n, nil
}

// DeleteForPrincipal removes every session belonging to the principal.
func (s *Store) DeleteForPrincipal(_ context.Context, ref session.PrincipalRef) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.byID {
		if sess.Principal == ref {
			s.remove(id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored sessions. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) remove(id uuid.UUID) {
	if sess, ok := s.byID[id]; ok {
		delete(s.byToken, sess.HashedToken)
		delete(s.byID, id)
	}
}

// clone copies a session so callers cannot mutate stored state through
// shared pointers.
func clone(sess session.Session) session.Session {
	if sess.OriginalPrincipal != nil {
		op := *sess.OriginalPrincipal
		sess.OriginalPrincipal = &op
	}
	if sess.ShapeshiftedAt != nil {
		at := *sess.ShapeshiftedAt
		sess.ShapeshiftedAt = &at
	}
	return sess
}
