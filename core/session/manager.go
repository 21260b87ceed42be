package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authgate/pkg/clientip"
)

// Manager orchestrates the session lifecycle against a Store. It holds no
// per-request state; every authentication decision is re-derived from the
// persisted record.
type Manager struct {
	store Store
	cfg   Config
	log   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger. Defaults to a discard handler.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager creates a session manager. The configuration is validated up
// front; an invalid configuration is a setup-time error, never a per-request
// one.
func NewManager(store Store, cfg Config, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		store: store,
		cfg:   cfg,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the manager's policy configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Active reports whether the session is valid under the configured
// inactivity lifetime.
func (m *Manager) Active(sess *Session) bool {
	return sess.Active(m.cfg.InactiveLifetime)
}

// Inactive reports whether the session exceeded the configured inactivity
// lifetime.
func (m *Manager) Inactive(sess *Session) bool {
	return sess.Inactive(m.cfg.InactiveLifetime)
}

// Establish creates and persists a session for an already-authenticated
// principal and returns the raw token for the transport layer. The raw token
// is the only copy; the store keeps its digest.
func (m *Manager) Establish(ctx context.Context, principal Principal, r *http.Request) (string, error) {
	if err := m.ValidatePrincipal(principal); err != nil {
		return "", err
	}
	if r == nil {
		return "", ErrMissingRequest
	}

	raw, hashed, err := IssueToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	sess := &Session{
		ID:          uuid.New(),
		HashedToken: hashed,
		Principal:   Ref(principal),
		ExpiresAt:   now.Add(m.cfg.TotalLifetime),
		LastSeenAt:  now,
		IPAddress:   clientip.GetIP(r),
		UserAgent:   r.Header.Get("User-Agent"),
		CreatedAt:   now,
	}

	if err := m.store.Create(ctx, sess); err != nil {
		return "", errors.Join(ErrSaveSession, err)
	}

	m.log.InfoContext(ctx, "session established",
		slog.String("session_id", sess.ID.String()),
		slog.String("principal", sess.Principal.String()))

	return raw, nil
}

// Resolve looks up a session by the transport-presented raw token.
// Returns ErrNotFound for an empty token or a digest miss.
func (m *Manager) Resolve(ctx context.Context, rawToken string) (*Session, error) {
	if rawToken == "" {
		return nil, ErrNotFound
	}
	return m.store.FindByHashedToken(ctx, HashToken(rawToken))
}

// UpdateInfo refreshes the session's activity timestamp and connection
// metadata from the request and persists it. The absolute ceiling is left
// untouched; activity never extends ExpiresAt.
func (m *Manager) UpdateInfo(ctx context.Context, sess *Session, r *http.Request) error {
	if r == nil {
		return ErrMissingRequest
	}

	sess.LastSeenAt = time.Now()
	sess.IPAddress = clientip.GetIP(r)
	sess.UserAgent = r.Header.Get("User-Agent")

	if err := m.store.Update(ctx, sess); err != nil {
		return errors.Join(ErrSaveSession, err)
	}
	return nil
}

// Terminate deletes the session record. Terminating an already-deleted
// session is a no-op at the store level.
func (m *Manager) Terminate(ctx context.Context, sess *Session) error {
	if err := m.store.Delete(ctx, sess.ID); err != nil {
		return errors.Join(ErrDeleteSession, err)
	}

	m.log.InfoContext(ctx, "session terminated",
		slog.String("session_id", sess.ID.String()),
		slog.String("principal", sess.Principal.String()))
	return nil
}

// TerminateAll unconditionally removes every session belonging to the
// principal, including active ones.
func (m *Manager) TerminateAll(ctx context.Context, ref PrincipalRef) (int64, error) {
	if ref.IsZero() {
		return 0, fmt.Errorf("%w: principal reference is required", ErrInvalidPrincipal)
	}
	n, err := m.store.DeleteForPrincipal(ctx, ref)
	if err != nil {
		return 0, errors.Join(ErrDeleteSession, err)
	}
	return n, nil
}

// Prune removes all expired sessions and, when an inactivity lifetime is
// configured, all inactive ones. Safe to run concurrently with live traffic:
// a session deleted mid-request simply fails its next lookup.
func (m *Manager) Prune(ctx context.Context) (int64, error) {
	return m.prune(ctx, nil)
}

// PruneFor behaves like Prune but only touches the given principal's
// sessions.
func (m *Manager) PruneFor(ctx context.Context, ref PrincipalRef) (int64, error) {
	if ref.IsZero() {
		return 0, fmt.Errorf("%w: principal reference is required", ErrInvalidPrincipal)
	}
	return m.prune(ctx, &ref)
}

func (m *Manager) prune(ctx context.Context, scope *PrincipalRef) (int64, error) {
	now := time.Now()
	var lastSeenBefore time.Time
	if m.cfg.InactiveLifetime > 0 {
		lastSeenBefore = now.Add(-m.cfg.InactiveLifetime)
	}

	n, err := m.store.DeleteStale(ctx, now, lastSeenBefore, scope)
	if err != nil {
		return 0, errors.Join(ErrDeleteSession, err)
	}

	if n > 0 {
		m.log.InfoContext(ctx, "pruned stale sessions", slog.Int64("count", n))
	}
	return n, nil
}

// Shapeshift switches the session to act as target while recording the
// current identity as the true operator. A session that is already
// shapeshifted must be reverted first; overwriting the original principal
// would lose the true identity.
func (m *Manager) Shapeshift(ctx context.Context, sess *Session, target Principal) error {
	if err := m.ValidatePrincipal(target); err != nil {
		return err
	}
	if sess.Shapeshifted() {
		return ErrAlreadyShapeshifted
	}

	now := time.Now()
	original := sess.Principal
	sess.OriginalPrincipal = &original
	sess.Principal = Ref(target)
	sess.ShapeshiftedAt = &now

	if err := m.store.Update(ctx, sess); err != nil {
		return errors.Join(ErrSaveSession, err)
	}

	m.log.InfoContext(ctx, "session shapeshifted",
		slog.String("session_id", sess.ID.String()),
		slog.String("operator", original.String()),
		slog.String("target", sess.Principal.String()))
	return nil
}

// RevertToTrueIdentity undoes a shapeshift, restoring the recorded operator
// as the acting principal.
func (m *Manager) RevertToTrueIdentity(ctx context.Context, sess *Session) error {
	if !sess.Shapeshifted() {
		return ErrNotShapeshifted
	}

	sess.Principal = *sess.OriginalPrincipal
	sess.OriginalPrincipal = nil
	sess.ShapeshiftedAt = nil

	if err := m.store.Update(ctx, sess); err != nil {
		return errors.Join(ErrSaveSession, err)
	}
	return nil
}

// ValidatePrincipal checks that p is present and of the configured kind.
// The returned error wraps ErrInvalidPrincipal and names both the expected
// kind and the offending value.
func (m *Manager) ValidatePrincipal(p Principal) error {
	if p == nil {
		return fmt.Errorf("%w: expected an instance of %q, got nil", ErrInvalidPrincipal, m.cfg.PrincipalKind)
	}
	if p.PrincipalKind() != m.cfg.PrincipalKind {
		return fmt.Errorf("%w: expected an instance of %q, got %q (%s)",
			ErrInvalidPrincipal, m.cfg.PrincipalKind, p.PrincipalKind(), Ref(p))
	}
	return nil
}
