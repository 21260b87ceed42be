package session

import "errors"

var (
	// ErrInvalidPrincipal is returned when a caller supplies a principal of the
	// wrong kind, or no principal where one is required.
	ErrInvalidPrincipal = errors.New("invalid principal")
	// ErrMissingRequest is returned when an operation that captures connection
	// metadata is invoked without an HTTP request.
	ErrMissingRequest = errors.New("request is required")
	// ErrNotFound is returned when a session cannot be resolved from the store.
	ErrNotFound = errors.New("session not found")
	// ErrDuplicateToken is returned by stores when a hashed token already exists.
	ErrDuplicateToken = errors.New("duplicate session token")
	// ErrTokenGeneration is returned when the secure random source fails.
	ErrTokenGeneration = errors.New("failed to generate token")
	// ErrAlreadyShapeshifted is returned when shapeshifting a session that is
	// already impersonating. Callers must revert first so the true identity is
	// never overwritten.
	ErrAlreadyShapeshifted = errors.New("session is already shapeshifted")
	// ErrNotShapeshifted is returned when reverting a session that is not
	// impersonating anyone.
	ErrNotShapeshifted = errors.New("session is not shapeshifted")
	// ErrSaveSession is returned when persisting a session fails.
	ErrSaveSession = errors.New("failed to save session")
	// ErrDeleteSession is returned when deleting a session fails.
	ErrDeleteSession = errors.New("failed to delete session")
)
