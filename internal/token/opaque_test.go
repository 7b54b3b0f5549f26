package token

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-passgate/passgate/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaqueMint(t *testing.T) {
	provider := NewOpaqueTokenProvider()

	minted, err := provider.Mint(context.Background(), "user-1", time.Hour)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(minted.Raw, OpaquePrefix))
	assert.Equal(t, util.SHA256Hex(minted.Raw), minted.Digest)
	assert.False(t, minted.ExpiresAt.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Hour), minted.ExpiresAt, 5*time.Second)
}

func TestOpaqueMintZeroTTL(t *testing.T) {
	provider := NewOpaqueTokenProvider()

	minted, err := provider.Mint(context.Background(), "user-1", 0)
	require.NoError(t, err)

	assert.True(t, minted.ExpiresAt.IsZero())
}

func TestOpaqueMintUnique(t *testing.T) {
	provider := NewOpaqueTokenProvider()
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		minted, err := provider.Mint(context.Background(), "user-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, seen[minted.Raw], "duplicate token minted")
		seen[minted.Raw] = true
	}
}

func TestOpaqueDigest(t *testing.T) {
	provider := NewOpaqueTokenProvider()

	minted, err := provider.Mint(context.Background(), "user-1", time.Hour)
	require.NoError(t, err)

	digest, err := provider.Digest(minted.Raw)
	require.NoError(t, err)
	assert.Equal(t, minted.Digest, digest)
}

func TestOpaqueDigestRejectsMissingPrefix(t *testing.T) {
	provider := NewOpaqueTokenProvider()

	_, err := provider.Digest("not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = provider.Digest("")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestOpaqueName(t *testing.T) {
	assert.Equal(t, "opaque", NewOpaqueTokenProvider().Name())
}
