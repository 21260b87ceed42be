package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authgate/pkg/useragent"
)

// Session is the persisted record of an authenticated session. The raw token
// is never part of it; only HashedToken is stored.
type Session struct {
	// ID is the stable unique session identifier.
	ID uuid.UUID

	// HashedToken is the SHA-256 hex digest of the opaque token. Globally
	// unique, computed once at establishment and never again.
	HashedToken string

	// Principal is the currently-acting principal. Always set; a session
	// without an owner cannot exist.
	Principal PrincipalRef

	// OriginalPrincipal holds the true operator's identity while the session
	// is shapeshifted, nil otherwise.
	OriginalPrincipal *PrincipalRef

	// ShapeshiftedAt is non-nil exactly when OriginalPrincipal is non-nil.
	ShapeshiftedAt *time.Time

	// ExpiresAt is the absolute ceiling, set at creation and never extended.
	ExpiresAt time.Time

	// LastSeenAt is updated on every successful refresh; monotonically
	// non-decreasing for a given session.
	LastSeenAt time.Time

	// IPAddress and UserAgent are the last-observed connection metadata,
	// overwritten on each refresh. Advisory only, not security-bearing.
	IPAddress string
	UserAgent string

	CreatedAt time.Time
}

// Expired reports whether the session passed its absolute ceiling.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Inactive reports whether the session exceeded the sliding inactivity
// timeout. Always false when lifetime is zero (inactivity expiry disabled).
func (s *Session) Inactive(lifetime time.Duration) bool {
	if lifetime == 0 {
		return false
	}
	return time.Since(s.LastSeenAt) > lifetime
}

// Active reports whether the session still grants access under the given
// inactivity lifetime. Evaluated fresh on every call, never cached.
func (s *Session) Active(lifetime time.Duration) bool {
	return !s.Expired() && !s.Inactive(lifetime)
}

// Shapeshifted reports whether the session is currently impersonating
// another principal.
func (s *Session) Shapeshifted() bool {
	return s.ShapeshiftedAt != nil
}

// Identity returns the currently-acting principal reference, which is the
// impersonated one while shapeshifted.
func (s *Session) Identity() PrincipalRef {
	return s.Principal
}

// TrueIdentity returns the real operator: the original principal while
// shapeshifted, the acting principal otherwise.
func (s *Session) TrueIdentity() PrincipalRef {
	if s.OriginalPrincipal != nil {
		return *s.OriginalPrincipal
	}
	return s.Principal
}

// Info is a read-only projection of a session's connection metadata with the
// user agent classified into human-readable parts.
type Info struct {
	Device     string
	OS         string
	Browser    string
	IPAddress  string
	LastSeenAt time.Time
}

// Info classifies the stored user agent and returns the session's connection
// metadata. Unparseable user agents degrade to "Unknown" fields.
func (s *Session) Info() Info {
	info := Info{
		Device:     "Unknown",
		OS:         "Unknown",
		Browser:    "Unknown",
		IPAddress:  s.IPAddress,
		LastSeenAt: s.LastSeenAt,
	}

	ua, err := useragent.Parse(s.UserAgent)
	if err != nil {
		return info
	}

	info.Device = ua.Device()
	info.OS = ua.OS()
	info.Browser = ua.Browser()
	return info
}
