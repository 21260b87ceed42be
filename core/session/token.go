package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// tokenBytes is the entropy of a raw token: 32 bytes (256 bits) encoded as
// a 43-character base64url string.
const tokenBytes = 32

// IssueToken generates a cryptographically secure opaque token and its
// storage digest. Only the digest is ever persisted; the raw token goes to
// the client and is unrecoverable once handed out.
func IssueToken() (raw, hashed string, err error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", errors.Join(ErrTokenGeneration, err)
	}
	raw = base64.RawURLEncoding.EncodeToString(b)
	return raw, HashToken(raw), nil
}

// HashToken derives the deterministic one-way digest of a raw token:
// SHA-256, hex-encoded (64 characters). Used to look up sessions from
// transport-presented tokens without storing or logging the raw value.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
