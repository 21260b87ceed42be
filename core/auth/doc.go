// Package auth is the authentication gate: the per-request decision point
// that turns a session token into an allow/deny outcome.
//
// The gate ties together the session manager (core/session), the cookie
// manager (core/cookie), and the host's principal store. The session token
// travels in an encrypted HTTP-only cookie; a signed secondary cookie
// preserves the original destination across login redirects.
//
// # Wiring
//
//	gate, err := auth.New(sessions, users, cookies, auth.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	mux := http.NewServeMux()
//	mux.Handle("/login", loginHandler(gate))
//
//	protect := gate.RequireAuthentication(auth.WithSkipPaths("/health"))
//	mux.Handle("/app/", protect(appHandler))
//
// Handlers behind the middleware read the request identity from context:
//
//	func appHandler(w http.ResponseWriter, r *http.Request) {
//		user, _ := auth.PrincipalFromContext(r.Context())
//		sess, _ := auth.SessionFromContext(r.Context())
//		...
//	}
//
// # Denial semantics
//
// A request with no session, a stale session, or a locked principal is
// denied, and any session it carried is terminated. Browser-facing requests
// are redirected to the configured fallback location with the attempted path
// preserved in the return-path cookie for fifteen minutes; API requests
// receive an empty 401. These are normal outcomes of the state machine, not
// errors.
package auth
