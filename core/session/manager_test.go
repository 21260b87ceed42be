package session_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/core/session"
	"github.com/dmitrymomot/authgate/integration/database/inmem"
)

type testUser struct {
	id     string
	locked bool
}

func (u testUser) PrincipalKind() string { return "user" }
func (u testUser) PrincipalID() string   { return u.id }
func (u testUser) Locked() bool          { return u.locked }

type testService struct{ id string }

func (s testService) PrincipalKind() string { return "service" }
func (s testService) PrincipalID() string   { return s.id }
func (s testService) Locked() bool          { return false }

func newManager(t *testing.T, store session.Store, cfg session.Config) *session.Manager {
	t.Helper()
	mgr, err := session.NewManager(store, cfg)
	require.NoError(t, err)
	return mgr
}

// seed persists a session with explicit timestamps for expiry scenarios.
func seed(t *testing.T, store session.Store, owner session.PrincipalRef, expiresAt, lastSeenAt time.Time) *session.Session {
	t.Helper()

	_, hashed, err := session.IssueToken()
	require.NoError(t, err)

	sess := &session.Session{
		ID:          uuid.New(),
		HashedToken: hashed,
		Principal:   owner,
		ExpiresAt:   expiresAt,
		LastSeenAt:  lastSeenAt,
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Create(context.Background(), sess))
	return sess
}

func TestNewManager_InvalidSetup(t *testing.T) {
	t.Parallel()

	_, err := session.NewManager(nil, session.DefaultConfig())
	require.Error(t, err)

	cfg := session.DefaultConfig()
	cfg.TotalLifetime = 0
	_, err = session.NewManager(inmem.New(), cfg)
	assert.ErrorIs(t, err, session.ErrInvalidLifetime)
}

func TestManager_Establish(t *testing.T) {
	t.Parallel()

	store := inmem.New()
	mgr := newManager(t, store, session.DefaultConfig())

	r := httptest.NewRequest("POST", "/login", nil)
	r.RemoteAddr = "1.2.3.4:5678"
	r.Header.Set("User-Agent", "IE7")

	raw, err := mgr.Establish(context.Background(), testUser{id: "42"}, r)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	sess, err := mgr.Resolve(context.Background(), raw)
	require.NoError(t, err)

	// Only the digest is persisted, never the raw token.
	assert.Equal(t, session.HashToken(raw), sess.HashedToken)
	assert.NotContains(t, sess.HashedToken, raw)

	assert.Equal(t, session.PrincipalRef{Kind: "user", ID: "42"}, sess.Principal)
	assert.Equal(t, "1.2.3.4", sess.IPAddress)
	assert.Equal(t, "IE7", sess.UserAgent)
	assert.Nil(t, sess.OriginalPrincipal)
	assert.Nil(t, sess.ShapeshiftedAt)
	assert.WithinDuration(t, time.Now().Add(720*time.Hour), sess.ExpiresAt, 3*time.Second)
	assert.WithinDuration(t, time.Now(), sess.LastSeenAt, 3*time.Second)
}

func TestManager_Establish_InvalidPrincipal(t *testing.T) {
	t.Parallel()

	mgr := newManager(t, inmem.New(), session.DefaultConfig())
	r := httptest.NewRequest("POST", "/login", nil)

	t.Run("nil principal", func(t *testing.T) {
		_, err := mgr.Establish(context.Background(), nil, r)
		require.ErrorIs(t, err, session.ErrInvalidPrincipal)
		assert.Contains(t, err.Error(), `"user"`)
	})

	t.Run("wrong kind", func(t *testing.T) {
		_, err := mgr.Establish(context.Background(), testService{id: "svc-1"}, r)
		require.ErrorIs(t, err, session.ErrInvalidPrincipal)
		assert.Contains(t, err.Error(), `"service"`)
	})
}

func TestManager_Establish_MissingRequest(t *testing.T) {
	t.Parallel()

	mgr := newManager(t, inmem.New(), session.DefaultConfig())

	_, err := mgr.Establish(context.Background(), testUser{id: "42"}, nil)
	assert.ErrorIs(t, err, session.ErrMissingRequest)
}

func TestManager_Resolve(t *testing.T) {
	t.Parallel()

	mgr := newManager(t, inmem.New(), session.DefaultConfig())

	t.Run("empty token", func(t *testing.T) {
		_, err := mgr.Resolve(context.Background(), "")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := mgr.Resolve(context.Background(), "nonexistent-token")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}

func TestManager_UpdateInfo(t *testing.T) {
	t.Parallel()

	store := inmem.New()
	mgr := newManager(t, store, session.DefaultConfig())

	r := httptest.NewRequest("POST", "/login", nil)
	r.RemoteAddr = "1.2.3.4:1111"
	raw, err := mgr.Establish(context.Background(), testUser{id: "42"}, r)
	require.NoError(t, err)

	sess, err := mgr.Resolve(context.Background(), raw)
	require.NoError(t, err)
	expiresAt := sess.ExpiresAt

	t.Run("missing request", func(t *testing.T) {
		assert.ErrorIs(t, mgr.UpdateInfo(context.Background(), sess, nil), session.ErrMissingRequest)
	})

	t.Run("refreshes activity and metadata", func(t *testing.T) {
		r2 := httptest.NewRequest("GET", "/dashboard", nil)
		r2.RemoteAddr = "5.6.7.8:2222"
		r2.Header.Set("User-Agent", "Firefox")

		require.NoError(t, mgr.UpdateInfo(context.Background(), sess, r2))

		stored, err := mgr.Resolve(context.Background(), raw)
		require.NoError(t, err)
		assert.Equal(t, "5.6.7.8", stored.IPAddress)
		assert.Equal(t, "Firefox", stored.UserAgent)
		assert.WithinDuration(t, time.Now(), stored.LastSeenAt, 3*time.Second)

		// Activity never extends the absolute ceiling.
		assert.Equal(t, expiresAt, stored.ExpiresAt)
	})

	t.Run("refresh after termination does not resurrect", func(t *testing.T) {
		require.NoError(t, mgr.Terminate(context.Background(), sess))

		// A refresh racing termination loses quietly: the update is a no-op,
		// never an upsert, so the terminated session stays gone.
		r3 := httptest.NewRequest("GET", "/dashboard", nil)
		require.NoError(t, mgr.UpdateInfo(context.Background(), sess, r3))

		_, err := mgr.Resolve(context.Background(), raw)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}

func TestManager_Terminate(t *testing.T) {
	t.Parallel()

	store := inmem.New()
	mgr := newManager(t, store, session.DefaultConfig())

	r := httptest.NewRequest("POST", "/login", nil)
	raw, err := mgr.Establish(context.Background(), testUser{id: "42"}, r)
	require.NoError(t, err)

	sess, err := mgr.Resolve(context.Background(), raw)
	require.NoError(t, err)

	require.NoError(t, mgr.Terminate(context.Background(), sess))
	_, err = mgr.Resolve(context.Background(), raw)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// Terminating an already-deleted session is a store-level no-op.
	assert.NoError(t, mgr.Terminate(context.Background(), sess))
}

func TestManager_TerminateAll(t *testing.T) {
	t.Parallel()

	store := inmem.New()
	mgr := newManager(t, store, session.DefaultConfig())

	owner := session.PrincipalRef{Kind: "user", ID: "42"}
	other := session.PrincipalRef{Kind: "user", ID: "99"}

	// Active, non-expired sessions are removed too.
	seed(t, store, owner, time.Now().Add(time.Hour), time.Now())
	seed(t, store, owner, time.Now().Add(time.Hour), time.Now())
	seed(t, store, other, time.Now().Add(time.Hour), time.Now())

	n, err := mgr.TerminateAll(context.Background(), owner)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 1, store.Len())
}

func TestManager_TerminateAll_MissingPrincipal(t *testing.T) {
	t.Parallel()

	mgr := newManager(t, inmem.New(), session.DefaultConfig())

	_, err := mgr.TerminateAll(context.Background(), session.PrincipalRef{})
	assert.ErrorIs(t, err, session.ErrInvalidPrincipal)
}

func TestManager_Prune(t *testing.T) {
	t.Parallel()

	owner := session.PrincipalRef{Kind: "user", ID: "42"}

	// 4 sessions: 1 unexpired but stale, 3 expired.
	setup := func(t *testing.T, store session.Store) {
		seed(t, store, owner, time.Now().Add(time.Hour), time.Now().Add(-10*time.Minute))
		seed(t, store, owner, time.Now().Add(-time.Minute), time.Now())
		seed(t, store, owner, time.Now().Add(-time.Hour), time.Now())
		seed(t, store, owner, time.Now().Add(-2*time.Hour), time.Now())
	}

	t.Run("no inactivity policy removes only expired", func(t *testing.T) {
		t.Parallel()

		store := inmem.New()
		setup(t, store)
		mgr := newManager(t, store, session.DefaultConfig())

		n, err := mgr.Prune(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("inactivity policy also removes stale", func(t *testing.T) {
		t.Parallel()

		store := inmem.New()
		setup(t, store)

		cfg := session.DefaultConfig()
		cfg.InactiveLifetime = 5 * time.Minute
		mgr := newManager(t, store, cfg)

		n, err := mgr.Prune(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
		assert.Equal(t, 0, store.Len())
	})
}

func TestManager_PruneFor(t *testing.T) {
	t.Parallel()

	target := session.PrincipalRef{Kind: "user", ID: "42"}
	other1 := session.PrincipalRef{Kind: "user", ID: "7"}
	other2 := session.PrincipalRef{Kind: "user", ID: "8"}

	// 7 sessions: 3 expired for the target, 3 expired for others,
	// 1 unexpired-but-stale for the target.
	setup := func(t *testing.T, store session.Store) {
		seed(t, store, target, time.Now().Add(-time.Hour), time.Now())
		seed(t, store, target, time.Now().Add(-time.Hour), time.Now())
		seed(t, store, target, time.Now().Add(-time.Hour), time.Now())
		seed(t, store, other1, time.Now().Add(-time.Hour), time.Now())
		seed(t, store, other1, time.Now().Add(-time.Hour), time.Now())
		seed(t, store, other2, time.Now().Add(-time.Hour), time.Now())
		seed(t, store, target, time.Now().Add(time.Hour), time.Now().Add(-10*time.Minute))
	}

	t.Run("scoped prune without inactivity policy", func(t *testing.T) {
		t.Parallel()

		store := inmem.New()
		setup(t, store)
		mgr := newManager(t, store, session.DefaultConfig())

		n, err := mgr.PruneFor(context.Background(), target)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
		assert.Equal(t, 4, store.Len())
	})

	t.Run("scoped prune with inactivity policy", func(t *testing.T) {
		t.Parallel()

		store := inmem.New()
		setup(t, store)

		cfg := session.DefaultConfig()
		cfg.InactiveLifetime = 5 * time.Minute
		mgr := newManager(t, store, cfg)

		n, err := mgr.PruneFor(context.Background(), target)
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
		assert.Equal(t, 3, store.Len())
	})

	t.Run("zero principal rejected", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t, inmem.New(), session.DefaultConfig())
		_, err := mgr.PruneFor(context.Background(), session.PrincipalRef{})
		assert.ErrorIs(t, err, session.ErrInvalidPrincipal)
	})
}

func TestManager_Shapeshift(t *testing.T) {
	t.Parallel()

	store := inmem.New()
	mgr := newManager(t, store, session.DefaultConfig())

	r := httptest.NewRequest("POST", "/login", nil)
	raw, err := mgr.Establish(context.Background(), testUser{id: "1"}, r)
	require.NoError(t, err)
	sess, err := mgr.Resolve(context.Background(), raw)
	require.NoError(t, err)

	t.Run("invalid target", func(t *testing.T) {
		err := mgr.Shapeshift(context.Background(), sess, nil)
		assert.ErrorIs(t, err, session.ErrInvalidPrincipal)

		err = mgr.Shapeshift(context.Background(), sess, testService{id: "svc"})
		assert.ErrorIs(t, err, session.ErrInvalidPrincipal)
	})

	t.Run("valid target transitions identity fields", func(t *testing.T) {
		require.NoError(t, mgr.Shapeshift(context.Background(), sess, testUser{id: "2"}))

		assert.True(t, sess.Shapeshifted())
		assert.Equal(t, session.PrincipalRef{Kind: "user", ID: "2"}, sess.Identity())
		assert.Equal(t, session.PrincipalRef{Kind: "user", ID: "1"}, sess.TrueIdentity())
		require.NotNil(t, sess.ShapeshiftedAt)
		assert.WithinDuration(t, time.Now(), *sess.ShapeshiftedAt, 3*time.Second)

		stored, err := mgr.Resolve(context.Background(), raw)
		require.NoError(t, err)
		assert.True(t, stored.Shapeshifted())
		assert.Equal(t, session.PrincipalRef{Kind: "user", ID: "2"}, stored.Principal)
	})

	t.Run("re-shapeshift rejected", func(t *testing.T) {
		err := mgr.Shapeshift(context.Background(), sess, testUser{id: "3"})
		assert.ErrorIs(t, err, session.ErrAlreadyShapeshifted)

		// The recorded true identity is untouched.
		assert.Equal(t, session.PrincipalRef{Kind: "user", ID: "1"}, sess.TrueIdentity())
	})

	t.Run("revert restores the true identity", func(t *testing.T) {
		require.NoError(t, mgr.RevertToTrueIdentity(context.Background(), sess))

		assert.False(t, sess.Shapeshifted())
		assert.Equal(t, session.PrincipalRef{Kind: "user", ID: "1"}, sess.Principal)
		assert.Nil(t, sess.OriginalPrincipal)
		assert.Nil(t, sess.ShapeshiftedAt)

		stored, err := mgr.Resolve(context.Background(), raw)
		require.NoError(t, err)
		assert.False(t, stored.Shapeshifted())
	})

	t.Run("revert without shapeshift rejected", func(t *testing.T) {
		err := mgr.RevertToTrueIdentity(context.Background(), sess)
		assert.ErrorIs(t, err, session.ErrNotShapeshifted)
	})
}
