package auth

import "errors"

var (
	// ErrNoSession is returned when the request carries no resolvable session.
	ErrNoSession = errors.New("no active session")
	// ErrMissingConfig is returned by New for an invalid gate configuration.
	ErrMissingConfig = errors.New("invalid gate configuration")
)
