package pg_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/core/session"
	"github.com/dmitrymomot/authgate/integration/database/pg"
)

// newStore connects to the database named by TEST_DATABASE_URL, runs
// migrations, and wipes the sessions table. Skipped when the variable is
// unset so the suite stays runnable without infrastructure.
func newStore(t *testing.T) *pg.Store {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	require.NoError(t, pg.Migrate(ctx, databaseURL))

	pool, err := pgxpool.New(ctx, databaseURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "TRUNCATE sessions")
	require.NoError(t, err)

	return pg.New(pool)
}

func newSession(owner session.PrincipalRef, expiresAt time.Time) *session.Session {
	_, hashed, _ := session.IssueToken()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &session.Session{
		ID:          uuid.New(),
		HashedToken: hashed,
		Principal:   owner,
		ExpiresAt:   expiresAt.UTC().Truncate(time.Microsecond),
		LastSeenAt:  now,
		IPAddress:   "1.2.3.4",
		UserAgent:   "test-agent",
		// Backdated so sessions seeded with a past expiry still satisfy
		// the expiry-after-creation constraint.
		CreatedAt: now.Add(-2 * time.Hour),
	}
}

func TestStore_CreateAndFind(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := session.PrincipalRef{Kind: "user", ID: "42"}

	sess := newSession(owner, time.Now().Add(time.Hour))
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.FindByHashedToken(ctx, sess.HashedToken)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, owner, got.Principal)
	assert.Nil(t, got.OriginalPrincipal)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Millisecond)

	t.Run("duplicate token rejected", func(t *testing.T) {
		dup := newSession(owner, time.Now().Add(time.Hour))
		dup.HashedToken = sess.HashedToken
		assert.ErrorIs(t, store.Create(ctx, dup), session.ErrDuplicateToken)
	})

	t.Run("miss", func(t *testing.T) {
		_, err := store.FindByHashedToken(ctx, "unknown-digest")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}

func TestStore_UpdateShapeshift(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	owner := session.PrincipalRef{Kind: "user", ID: "1"}

	sess := newSession(owner, time.Now().Add(time.Hour))
	require.NoError(t, store.Create(ctx, sess))

	now := time.Now().UTC().Truncate(time.Microsecond)
	original := sess.Principal
	sess.OriginalPrincipal = &original
	sess.Principal = session.PrincipalRef{Kind: "user", ID: "2"}
	sess.ShapeshiftedAt = &now
	require.NoError(t, store.Update(ctx, sess))

	got, err := store.FindByHashedToken(ctx, sess.HashedToken)
	require.NoError(t, err)
	assert.True(t, got.Shapeshifted())
	assert.Equal(t, original, got.TrueIdentity())
	assert.Equal(t, "2", got.Principal.ID)
}

func TestStore_Delete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sess := newSession(session.PrincipalRef{Kind: "user", ID: "42"}, time.Now().Add(time.Hour))
	require.NoError(t, store.Create(ctx, sess))

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err := store.FindByHashedToken(ctx, sess.HashedToken)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(ctx, sess.ID))

	// So is updating the deleted record; zero rows, no upsert.
	require.NoError(t, store.Update(ctx, sess))
	_, err = store.FindByHashedToken(ctx, sess.HashedToken)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStore_DeleteStale(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	owner := session.PrincipalRef{Kind: "user", ID: "42"}
	other := session.PrincipalRef{Kind: "user", ID: "7"}

	expired := newSession(owner, time.Now().Add(-time.Hour))
	idle := newSession(owner, time.Now().Add(time.Hour))
	idle.LastSeenAt = time.Now().Add(-30 * time.Minute).UTC()
	fresh := newSession(owner, time.Now().Add(time.Hour))
	otherExpired := newSession(other, time.Now().Add(-time.Hour))

	for _, s := range []*session.Session{expired, idle, fresh, otherExpired} {
		require.NoError(t, store.Create(ctx, s))
	}

	t.Run("scoped with inactivity cutoff", func(t *testing.T) {
		n, err := store.DeleteStale(ctx, time.Now(), time.Now().Add(-10*time.Minute), &owner)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		_, err = store.FindByHashedToken(ctx, fresh.HashedToken)
		assert.NoError(t, err)
		_, err = store.FindByHashedToken(ctx, otherExpired.HashedToken)
		assert.NoError(t, err, "out-of-scope session untouched")
	})

	t.Run("unscoped expiry only", func(t *testing.T) {
		n, err := store.DeleteStale(ctx, time.Now(), time.Time{}, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})
}

func TestStore_DeleteForPrincipal(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	owner := session.PrincipalRef{Kind: "user", ID: "42"}
	other := session.PrincipalRef{Kind: "user", ID: "7"}

	require.NoError(t, store.Create(ctx, newSession(owner, time.Now().Add(time.Hour))))
	require.NoError(t, store.Create(ctx, newSession(owner, time.Now().Add(time.Hour))))
	keep := newSession(other, time.Now().Add(time.Hour))
	require.NoError(t, store.Create(ctx, keep))

	n, err := store.DeleteForPrincipal(ctx, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = store.FindByHashedToken(ctx, keep.HashedToken)
	assert.NoError(t, err)
}
