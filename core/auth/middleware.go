package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/authgate/core/cookie"
	"github.com/dmitrymomot/authgate/core/session"
)

// middlewareConfig holds per-registration middleware options.
type middlewareConfig struct {
	skip func(*http.Request) bool
	deny http.Handler
}

// MiddlewareOption configures one registration of the authentication
// middleware. Malformed options panic at registration time; a bad filter
// setup is a programming error that must never surface per-request.
type MiddlewareOption func(*middlewareConfig)

// WithSkip exempts matching requests from authentication. This is the
// opt-out half of filter registration; the middleware itself is the opt-in.
func WithSkip(skip func(*http.Request) bool) MiddlewareOption {
	if skip == nil {
		panic("auth: WithSkip requires a non-nil predicate")
	}
	return func(c *middlewareConfig) {
		c.skip = skip
	}
}

// WithSkipPaths exempts exact request paths from authentication.
func WithSkipPaths(paths ...string) MiddlewareOption {
	if len(paths) == 0 {
		panic("auth: WithSkipPaths requires at least one path")
	}
	skip := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			panic("auth: skip path must begin with '/': " + p)
		}
		skip[p] = struct{}{}
	}
	return func(c *middlewareConfig) {
		c.skip = func(r *http.Request) bool {
			_, ok := skip[r.URL.Path]
			return ok
		}
	}
}

// WithDenyHandler overrides the default denial response (redirect for
// browser requests, empty 401 otherwise). The session cleanup and
// return-path capture still run first.
func WithDenyHandler(h http.Handler) MiddlewareOption {
	if h == nil {
		panic("auth: WithDenyHandler requires a non-nil handler")
	}
	return func(c *middlewareConfig) {
		c.deny = h
	}
}

// RequireAuthentication returns middleware enforcing the per-request
// authentication decision:
//
//  1. Resolve the session from the encrypted token cookie.
//  2. If the session is active and its principal exists and is not locked,
//     refresh the session's activity metadata and let the request proceed
//     with the session and principal in its context.
//  3. Otherwise terminate the session (if any), clear the token cookie, and
//     deny: browser-facing GET requests get their path recorded for a
//     post-login redirect and are sent to the fallback location; everything
//     else receives an empty 401.
//
// Expired, inactive, absent, and locked are all normal outcomes here, not
// errors; nothing is raised past the middleware.
func (g *Gate) RequireAuthentication(opts ...MiddlewareOption) func(http.Handler) http.Handler {
	var cfg middlewareConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.skip != nil && cfg.skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := g.CurrentSession(r)
			if err == nil && g.sessions.Active(sess) {
				principal, perr := g.principals.FindPrincipal(r.Context(), sess.Identity())
				if perr != nil || principal.Locked() {
					// Locked principals lose their session immediately.
					g.discardSession(w, r, sess)
					g.deny(w, r, cfg.deny)
					return
				}

				if uerr := g.sessions.UpdateInfo(r.Context(), sess, r); uerr != nil {
					g.log.ErrorContext(r.Context(), "failed to refresh session",
						slog.String("session_id", sess.ID.String()), slog.Any("error", uerr))
				}

				next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess, principal)))
				return
			}

			if sess != nil {
				g.discardSession(w, r, sess)
			} else {
				g.cookies.Delete(w, g.cfg.TokenCookie)
			}
			g.deny(w, r, cfg.deny)
		})
	}
}

// discardSession terminates a session and clears the token cookie.
func (g *Gate) discardSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := g.sessions.Terminate(r.Context(), sess); err != nil {
		g.log.ErrorContext(r.Context(), "failed to terminate session",
			slog.String("session_id", sess.ID.String()), slog.Any("error", err))
	}
	g.cookies.Delete(w, g.cfg.TokenCookie)
}

// deny finishes a rejected request. Safe page-rendering requests get their
// full path preserved for a post-login redirect.
func (g *Gate) deny(w http.ResponseWriter, r *http.Request, custom http.Handler) {
	if r.Method == http.MethodGet && wantsHTML(r) {
		if err := g.cookies.SetSigned(w, g.cfg.ReturnPathCookie, r.URL.RequestURI(),
			cookie.WithMaxAge(int(g.cfg.ReturnPathTTL.Seconds())),
		); err != nil {
			g.log.ErrorContext(r.Context(), "failed to store return path", slog.Any("error", err))
		}
	}

	if custom != nil {
		custom.ServeHTTP(w, r)
		return
	}

	if wantsHTML(r) {
		http.Redirect(w, r, g.cfg.FallbackPath, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusUnauthorized)
}

// wantsHTML reports whether the request negotiates a browsable
// representation. An absent Accept header counts as browsable, matching
// browser behavior.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	return strings.Contains(accept, "text/html") ||
		strings.Contains(accept, "application/xhtml+xml") ||
		strings.Contains(accept, "*/*")
}
