package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authgate/core/session"
)

const (
	sessionKeyPrefix   = "authgate:session:"
	idKeyPrefix        = "authgate:id:"
	principalKeyPrefix = "authgate:principal:"
)

// Store is a Redis implementation of session.Store.
//
// Layout: the session record lives as a JSON blob keyed by its hashed token
// with an absolute EXPIREAT matching the session's expiry, so Redis itself
// enforces the hard ceiling. A parallel id key supports delete-by-ID, and a
// per-principal SET of hashed tokens supports scoped bulk operations. The set
// always indexes the current acting principal: updates that change it move
// the hash between sets.
type Store struct {
	client redis.UniversalClient
}

// New creates a Redis session store.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Create persists a new session.
func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, sessionKey(sess.HashedToken), data, time.Until(sess.ExpiresAt)).Result()
	if err != nil {
		return err
	}
	if !ok {
		return session.ErrDuplicateToken
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, idKey(sess.ID), sess.HashedToken, time.Until(sess.ExpiresAt))
	pipe.SAdd(ctx, principalKey(sess.Principal), sess.HashedToken)
	_, err = pipe.Exec(ctx)
	return err
}

// FindByHashedToken resolves a session by its token digest.
func (s *Store) FindByHashedToken(ctx context.Context, hashedToken string) (*session.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(hashedToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}
	return &sess, nil
}

// Update overwrites the session's mutable fields, keeping the absolute
// expiry. Updating a session that already vanished is a silent no-op.
func (s *Store) Update(ctx context.Context, sess *session.Session) error {
	stored, err := s.FindByHashedToken(ctx, sess.HashedToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	err = s.client.SetArgs(ctx, sessionKey(sess.HashedToken), data, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	// Shapeshift and revert change the acting principal; the index set must
	// follow, or scoped deletion would keep matching the previous owner.
	if stored.Principal != sess.Principal {
		return s.client.SMove(ctx,
			principalKey(stored.Principal), principalKey(sess.Principal), sess.HashedToken).Err()
	}
	return nil
}

// Delete removes a session by ID, no-op when absent.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	hashedToken, err := s.client.Get(ctx, idKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	sess, err := s.FindByHashedToken(ctx, hashedToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return s.client.Del(ctx, idKey(id)).Err()
		}
		return err
	}

	return s.removeSession(ctx, sess)
}

// DeleteStale removes expired and, when lastSeenBefore is set, inactive
// sessions, optionally scoped to one principal. Expired records also age
// out on their own via the keys' absolute TTL.
func (s *Store) DeleteStale(ctx context.Context, expiredBefore, lastSeenBefore time.Time, scope *session.PrincipalRef) (int64, error) {
	var n int64
	err := s.walk(ctx, scope, func(sess *session.Session) error {
		stale := sess.ExpiresAt.Before(expiredBefore)
		if !stale && !lastSeenBefore.IsZero() {
			stale = sess.LastSeenAt.Before(lastSeenBefore)
		}
		if !stale {
			return nil
		}
		if err := s.removeSession(ctx, sess); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// DeleteForPrincipal removes every session belonging to the principal.
func (s *Store) DeleteForPrincipal(ctx context.Context, ref session.PrincipalRef) (int64, error) {
	var n int64
	err := s.walk(ctx, &ref, func(sess *session.Session) error {
		if err := s.removeSession(ctx, sess); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// walk visits every stored session, limited to one principal's set when
// scope is non-nil, otherwise scanning the whole session keyspace.
func (s *Store) walk(ctx context.Context, scope *session.PrincipalRef, fn func(*session.Session) error) error {
	if scope != nil {
		hashes, err := s.client.SMembers(ctx, principalKey(*scope)).Result()
		if err != nil {
			return err
		}
		for _, hash := range hashes {
			sess, err := s.FindByHashedToken(ctx, hash)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					// Expired via TTL; drop the dangling index entry.
					_ = s.client.SRem(ctx, principalKey(*scope), hash).Err()
					continue
				}
				return err
			}
			if err := fn(sess); err != nil {
				return err
			}
		}
		return nil
	}

	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		hash := iter.Val()[len(sessionKeyPrefix):]
		sess, err := s.FindByHashedToken(ctx, hash)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				continue
			}
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
	}
	return iter.Err()
}

// removeSession deletes the record and both index entries atomically.
func (s *Store) removeSession(ctx context.Context, sess *session.Session) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sess.HashedToken))
	pipe.Del(ctx, idKey(sess.ID))
	pipe.SRem(ctx, principalKey(sess.Principal), sess.HashedToken)
	_, err := pipe.Exec(ctx)
	return err
}

func sessionKey(hashedToken string) string {
	return sessionKeyPrefix + hashedToken
}

func idKey(id uuid.UUID) string {
	return idKeyPrefix + id.String()
}

func principalKey(ref session.PrincipalRef) string {
	return principalKeyPrefix + ref.Kind + ":" + ref.ID
}
