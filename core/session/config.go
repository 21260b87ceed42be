package session

import (
	"errors"
	"time"
)

// Config holds process-wide session policy. It is constructed once at startup
// and passed by value into NewManager; nothing mutates it per request.
type Config struct {
	// TotalLifetime is the hard ceiling on session age, counted from creation.
	// It is never extended by activity.
	TotalLifetime time.Duration `env:"SESSION_TOTAL_LIFETIME" envDefault:"720h"`

	// InactiveLifetime is the sliding timeout counted from the last observed
	// activity. Zero disables inactivity expiry entirely.
	InactiveLifetime time.Duration `env:"SESSION_INACTIVE_LIFETIME" envDefault:"0"`

	// PrincipalKind is the expected kind for every principal reference handled
	// by the manager. Principals of any other kind are rejected.
	PrincipalKind string `env:"SESSION_PRINCIPAL_KIND" envDefault:"user"`
}

// DefaultConfig returns a Config with a 30-day total lifetime, no inactivity
// timeout, and the "user" principal kind.
func DefaultConfig() Config {
	return Config{
		TotalLifetime:    720 * time.Hour,
		InactiveLifetime: 0,
		PrincipalKind:    "user",
	}
}

var (
	// ErrInvalidLifetime is returned by Validate for a non-positive total
	// lifetime or a negative inactivity lifetime.
	ErrInvalidLifetime = errors.New("invalid session lifetime")
	// ErrMissingPrincipalKind is returned by Validate when no principal kind
	// is configured.
	ErrMissingPrincipalKind = errors.New("principal kind is required")
)

// Validate checks the configuration for startup-time errors.
func (c Config) Validate() error {
	if c.TotalLifetime <= 0 {
		return errors.Join(ErrInvalidLifetime, errors.New("total lifetime must be positive"))
	}
	if c.InactiveLifetime < 0 {
		return errors.Join(ErrInvalidLifetime, errors.New("inactive lifetime cannot be negative"))
	}
	if c.PrincipalKind == "" {
		return ErrMissingPrincipalKind
	}
	return nil
}
