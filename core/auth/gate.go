package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/authgate/core/cookie"
	"github.com/dmitrymomot/authgate/core/session"
)

// Gate is the per-request authentication decision point. It resolves the
// session from the encrypted token cookie, evaluates validity, and exposes
// the host-facing login/logout surface. The gate itself is stateless; every
// decision is re-derived from the persisted session record.
type Gate struct {
	sessions   *session.Manager
	principals session.PrincipalStore
	cookies    *cookie.Manager
	cfg        Config
	log        *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the structured logger. Defaults to a discard handler.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// New creates an authentication gate. Configuration problems surface here,
// at setup time, never during request handling.
func New(sessions *session.Manager, principals session.PrincipalStore, cookies *cookie.Manager, cfg Config, opts ...Option) (*Gate, error) {
	if sessions == nil {
		return nil, errors.Join(ErrMissingConfig, errors.New("session manager is required"))
	}
	if principals == nil {
		return nil, errors.Join(ErrMissingConfig, errors.New("principal store is required"))
	}
	if cookies == nil {
		return nil, errors.Join(ErrMissingConfig, errors.New("cookie manager is required"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Gate{
		sessions:   sessions,
		principals: principals,
		cookies:    cookies,
		cfg:        cfg,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// LogIn establishes a session for an already-authenticated principal and
// sets the encrypted token cookie. Returns false without creating a session
// when the principal is locked. Credential verification is the caller's job;
// the gate only manages what happens after.
func (g *Gate) LogIn(w http.ResponseWriter, r *http.Request, principal session.Principal) (bool, error) {
	if err := g.sessions.ValidatePrincipal(principal); err != nil {
		return false, err
	}
	if principal.Locked() {
		return false, nil
	}

	token, err := g.sessions.Establish(r.Context(), principal, r)
	if err != nil {
		return false, err
	}

	if err := g.cookies.SetEncrypted(w, g.cfg.TokenCookie, token,
		cookie.WithHTTPOnly(true),
		cookie.WithMaxAge(permanentMaxAge),
	); err != nil {
		return false, err
	}
	return true, nil
}

// LogOut terminates the current session, if any, and clears the token
// cookie. Safe to call with no active session.
func (g *Gate) LogOut(w http.ResponseWriter, r *http.Request) error {
	if sess, err := g.CurrentSession(r); err == nil {
		if err := g.sessions.Terminate(r.Context(), sess); err != nil {
			return err
		}
	}
	g.cookies.Delete(w, g.cfg.TokenCookie)
	return nil
}

// CurrentSession resolves the request's session from the token cookie.
// Returns ErrNoSession when the cookie is absent, undecryptable, or no
// matching record exists.
func (g *Gate) CurrentSession(r *http.Request) (*session.Session, error) {
	token, err := g.cookies.GetEncrypted(r, g.cfg.TokenCookie)
	if err != nil {
		return nil, errors.Join(ErrNoSession, err)
	}

	sess, err := g.sessions.Resolve(r.Context(), token)
	if err != nil {
		return nil, errors.Join(ErrNoSession, err)
	}
	return sess, nil
}

// CurrentPrincipal resolves the acting principal behind the request's
// session: the impersonated one while shapeshifted.
func (g *Gate) CurrentPrincipal(r *http.Request) (session.Principal, error) {
	sess, err := g.CurrentSession(r)
	if err != nil {
		return nil, err
	}
	return g.principals.FindPrincipal(r.Context(), sess.Identity())
}

// LoggedIn reports whether the request carries a resolvable session for an
// existing principal.
func (g *Gate) LoggedIn(r *http.Request) bool {
	_, err := g.CurrentPrincipal(r)
	return err == nil
}

// Shapeshifter reports whether the request's session is impersonating
// another principal.
func (g *Gate) Shapeshifter(r *http.Request) bool {
	sess, err := g.CurrentSession(r)
	return err == nil && sess.Shapeshifted()
}

// ReturnPath returns the destination stored before a login redirect, if the
// signed return-path cookie is present and intact.
func (g *Gate) ReturnPath(r *http.Request) (string, bool) {
	path, err := g.cookies.GetSigned(r, g.cfg.ReturnPathCookie)
	if err != nil || path == "" {
		return "", false
	}
	return path, true
}

// ClearReturnPath removes the return-path cookie, typically after the host
// has consumed it post-login.
func (g *Gate) ClearReturnPath(w http.ResponseWriter) {
	g.cookies.Delete(w, g.cfg.ReturnPathCookie)
}
