package auth

import (
	"errors"
	"strings"
	"time"
)

// permanentMaxAge keeps the token cookie alive until explicitly cleared
// (20 years, the conventional "permanent" cookie horizon).
const permanentMaxAge = 20 * 365 * 24 * 60 * 60

// Config holds the gate's transport policy.
type Config struct {
	// TokenCookie names the encrypted, HTTP-only cookie carrying the raw
	// session token.
	TokenCookie string `env:"AUTH_TOKEN_COOKIE" envDefault:"__session_token"`

	// ReturnPathCookie names the signed cookie preserving the original
	// destination across a login redirect.
	ReturnPathCookie string `env:"AUTH_RETURN_PATH_COOKIE" envDefault:"__return_path"`

	// ReturnPathTTL is the retention window for the return path.
	ReturnPathTTL time.Duration `env:"AUTH_RETURN_PATH_TTL" envDefault:"15m"`

	// FallbackPath is where denied browser requests are redirected.
	FallbackPath string `env:"AUTH_FALLBACK_PATH" envDefault:"/"`
}

// DefaultConfig returns the gate defaults: "__session_token" /
// "__return_path" cookies, a 15-minute return-path window, and "/" as the
// redirect fallback.
func DefaultConfig() Config {
	return Config{
		TokenCookie:      "__session_token",
		ReturnPathCookie: "__return_path",
		ReturnPathTTL:    15 * time.Minute,
		FallbackPath:     "/",
	}
}

// Validate checks the configuration for startup-time errors.
func (c Config) Validate() error {
	if c.TokenCookie == "" || c.ReturnPathCookie == "" {
		return errors.Join(ErrMissingConfig, errors.New("cookie names are required"))
	}
	if c.TokenCookie == c.ReturnPathCookie {
		return errors.Join(ErrMissingConfig, errors.New("token and return path cookies must differ"))
	}
	if c.ReturnPathTTL <= 0 {
		return errors.Join(ErrMissingConfig, errors.New("return path TTL must be positive"))
	}
	if !strings.HasPrefix(c.FallbackPath, "/") {
		return errors.Join(ErrMissingConfig, errors.New("fallback path must begin with '/'"))
	}
	return nil
}
