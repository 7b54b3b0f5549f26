package token

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-passgate/passgate/internal/util"
)

// opaqueRandomBytes gives 256 bits of entropy per token, well past the
// 128-bit unguessability floor.
const opaqueRandomBytes = 32

// OpaqueTokenProvider mints random bearer tokens that carry no embedded
// claims. All state lives in the database row keyed by the token digest.
type OpaqueTokenProvider struct{}

// NewOpaqueTokenProvider creates a new opaque token provider
func NewOpaqueTokenProvider() *OpaqueTokenProvider {
	return &OpaqueTokenProvider{}
}

// Mint generates a fresh random token. The raw value is returned exactly
// once; only its digest is meant to be persisted.
func (p *OpaqueTokenProvider) Mint(
	ctx context.Context,
	principalID string,
	ttl time.Duration,
) (*Minted, error) {
	random, err := util.CryptoRandomURLSafe(opaqueRandomBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	raw := OpaquePrefix + random

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	return &Minted{
		Raw:       raw,
		Digest:    util.SHA256Hex(raw),
		ExpiresAt: expiresAt,
	}, nil
}

// Digest maps a presented raw token to its storage digest. Values without
// the opaque prefix are rejected before any database work happens.
func (p *OpaqueTokenProvider) Digest(raw string) (string, error) {
	if !strings.HasPrefix(raw, OpaquePrefix) {
		return "", ErrTokenMalformed
	}
	return util.SHA256Hex(raw), nil
}

// Name returns provider name for logging
func (p *OpaqueTokenProvider) Name() string {
	return "opaque"
}
