package session

import (
	"context"
	"fmt"
)

// Principal is the host-defined authenticated entity a session represents.
// The host's user model implements it at the boundary this package needs:
// a stable identity and a lockable flag.
type Principal interface {
	// PrincipalKind reports the entity kind, e.g. "user" or "admin".
	PrincipalKind() string
	// PrincipalID reports the entity's primary identifier rendered as a string.
	PrincipalID() string
	// Locked reports whether the principal is barred from holding sessions.
	Locked() bool
}

// PrincipalRef is a tagged, non-owning reference to a Principal. The zero
// value means "no principal".
type PrincipalRef struct {
	Kind string
	ID   string
}

// Ref builds a PrincipalRef for the given principal.
func Ref(p Principal) PrincipalRef {
	return PrincipalRef{Kind: p.PrincipalKind(), ID: p.PrincipalID()}
}

// IsZero reports whether the reference points at nothing.
func (r PrincipalRef) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// String renders the reference as "kind/id" for logs and error messages.
func (r PrincipalRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}

// PrincipalStore resolves principal references back to host entities.
// Implementations must return an error for unknown references.
type PrincipalStore interface {
	FindPrincipal(ctx context.Context, ref PrincipalRef) (Principal, error)
}
