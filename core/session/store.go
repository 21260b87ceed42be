package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store defines the persistence interface for session records.
// Implementations must handle concurrent access safely: Update is a blind
// overwrite of mutable fields and Delete must no-op when the record is
// already gone.
type Store interface {
	// Create persists a new session. Returns ErrDuplicateToken when the
	// hashed token already exists.
	Create(ctx context.Context, sess *Session) error

	// FindByHashedToken resolves a session by its token digest. Must be
	// backed by a unique index so resolution cost is independent of the
	// total session count. Returns ErrNotFound on a miss.
	FindByHashedToken(ctx context.Context, hashedToken string) (*Session, error)

	// Update overwrites the session's mutable fields (last seen, connection
	// metadata, impersonation state). Last writer wins.
	Update(ctx context.Context, sess *Session) error

	// Delete removes a session by ID. Deleting an absent session is not an
	// error.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteStale removes sessions whose absolute expiry passed before
	// expiredBefore, or whose last activity is older than lastSeenBefore
	// (skipped when lastSeenBefore is the zero time). A non-nil scope limits
	// deletion to that principal's sessions. Returns the number removed.
	DeleteStale(ctx context.Context, expiredBefore, lastSeenBefore time.Time, scope *PrincipalRef) (int64, error)

	// DeleteForPrincipal unconditionally removes every session belonging to
	// the principal, active or not. Returns the number removed.
	DeleteForPrincipal(ctx context.Context, ref PrincipalRef) (int64, error)
}
