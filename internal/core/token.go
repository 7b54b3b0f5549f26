package core

import (
	"context"
	"time"
)

// MintedToken is the outcome of a token mint call. Raw is handed to the
// client exactly once; only Digest is ever persisted.
type MintedToken struct {
	Raw       string
	Digest    string
	ExpiresAt time.Time // zero means the token does not expire
}

// TokenProvider abstracts the wire format of bearer tokens. The opaque
// provider mints random strings; the JWT provider mints signed claims.
// Both map a presented token onto the storage digest used for lookup, so
// revocation always consults the backing store regardless of format.
type TokenProvider interface {
	// Mint creates a new bearer token for the principal. A zero ttl mints
	// a non-expiring token.
	Mint(ctx context.Context, principalID string, ttl time.Duration) (*MintedToken, error)

	// Digest maps a client-presented token to its storage digest.
	// Returns ErrTokenMalformed when the token cannot possibly have been
	// minted by this provider (wrong prefix, bad signature, expired claims).
	Digest(raw string) (string, error)

	Name() string
}
