// Package session manages the lifecycle of authenticated sessions: issuing
// opaque tokens, validating expiry and inactivity on every request,
// administrative impersonation ("shapeshifting"), and pruning stale records.
//
// A Session grants access while it is Active: not past its absolute expiry
// (total lifetime, fixed at creation) and not past the optional sliding
// inactivity timeout (counted from the last observed activity). Both checks
// are re-evaluated from scratch on every call.
//
// Tokens are 256-bit values from a cryptographically secure source. Only the
// SHA-256 digest is persisted; the raw token exists solely in the client's
// cookie and in the return value of Manager.Establish.
//
// # Basic usage
//
//	cfg := session.DefaultConfig()
//	cfg.InactiveLifetime = 30 * time.Minute
//
//	mgr, err := session.NewManager(store, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// After the caller has verified credentials:
//	token, err := mgr.Establish(ctx, user, r)
//
//	// On subsequent requests:
//	sess, err := mgr.Resolve(ctx, token)
//	if err == nil && mgr.Active(sess) {
//		_ = mgr.UpdateInfo(ctx, sess, r)
//	}
//
// # Impersonation
//
// Shapeshift lets support tooling act as another principal while retaining
// the true operator's identity:
//
//	if err := mgr.Shapeshift(ctx, sess, customer); err != nil {
//		// ErrAlreadyShapeshifted, ErrInvalidPrincipal, ...
//	}
//	sess.Identity()     // the customer
//	sess.TrueIdentity() // the operator
//	_ = mgr.RevertToTrueIdentity(ctx, sess)
//
// # Pruning
//
// Prune removes expired sessions, plus inactive ones when an inactivity
// lifetime is configured. PruneFor scopes the sweep to one principal and
// TerminateAll removes a principal's sessions unconditionally. All three are
// single-pass bulk deletes, safe to run against live traffic.
package session
