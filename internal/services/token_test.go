package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-passgate/passgate/internal/metrics"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/store"
	"github.com/go-passgate/passgate/internal/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, s *store.Store, ttl time.Duration) *TokenService {
	t.Helper()
	return NewTokenService(s, token.NewOpaqueTokenProvider(), ttl, metrics.NewNoopMetrics())
}

func TestTokenIssueAndValidate(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	user := createServiceUser(t, s)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, user, "ci")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.RawToken)
	assert.Equal(t, "ci", issued.Label)
	assert.Equal(t, models.TokenStatusActive, issued.Status)

	validated, err := svc.Validate(ctx, issued.RawToken)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, validated.ID)
	assert.Equal(t, user.ID, validated.UserID)
	// The stored row never carries the raw value.
	assert.Empty(t, validated.RawToken)
}

func TestTokenIssueMultipleIndependent(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	user := createServiceUser(t, s)
	ctx := context.Background()

	first, err := svc.Issue(ctx, user, "laptop")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, user, "ci")
	require.NoError(t, err)
	assert.NotEqual(t, first.RawToken, second.RawToken)

	// Issuing a second token leaves the first one valid.
	_, err = svc.Validate(ctx, first.RawToken)
	assert.NoError(t, err)
	_, err = svc.Validate(ctx, second.RawToken)
	assert.NoError(t, err)
}

func TestTokenRevokeOneLeavesOthers(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	user := createServiceUser(t, s)
	ctx := context.Background()

	first, err := svc.Issue(ctx, user, "laptop")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, user, "ci")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, user.ID, first.ID))

	_, err = svc.Validate(ctx, first.RawToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = svc.Validate(ctx, second.RawToken)
	assert.NoError(t, err)
}

func TestTokenRevokeIdempotent(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	user := createServiceUser(t, s)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, user, "laptop")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, user.ID, issued.ID))
	assert.NoError(t, svc.Revoke(ctx, user.ID, issued.ID))
}

func TestTokenRevokeForeignOwner(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	owner := createServiceUser(t, s)
	intruder := createServiceUser(t, s)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, owner, "laptop")
	require.NoError(t, err)

	// Someone else's token is indistinguishable from a nonexistent one.
	err = svc.Revoke(ctx, intruder.ID, issued.ID)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = svc.Validate(ctx, issued.RawToken)
	assert.NoError(t, err)
}

func TestTokenRevokeUnknown(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	user := createServiceUser(t, s)

	err := svc.Revoke(context.Background(), user.ID, "no-such-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRevokeAll(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	user := createServiceUser(t, s)
	other := createServiceUser(t, s)
	ctx := context.Background()

	first, err := svc.Issue(ctx, user, "laptop")
	require.NoError(t, err)
	second, err := svc.Issue(ctx, user, "ci")
	require.NoError(t, err)
	foreign, err := svc.Issue(ctx, other, "phone")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, user.ID))

	_, err = svc.Validate(ctx, first.RawToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = svc.Validate(ctx, second.RawToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = svc.Validate(ctx, foreign.RawToken)
	assert.NoError(t, err)
}

func TestTokenValidateRejectsUnissued(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	ctx := context.Background()

	// Well-formed but never issued.
	minted, err := token.NewOpaqueTokenProvider().Mint(ctx, "nobody", time.Hour)
	require.NoError(t, err)

	_, err = svc.Validate(ctx, minted.Raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Validate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenValidateRejectsExpired(t *testing.T) {
	s := setupServiceStore(t)
	shortLived := newTestTokenService(t, s, time.Millisecond)
	user := createServiceUser(t, s)
	ctx := context.Background()

	issued, err := shortLived.Issue(ctx, user, "stale")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = shortLived.Validate(ctx, issued.RawToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenValidateRecordsLastUse(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	user := createServiceUser(t, s)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, user, "laptop")
	require.NoError(t, err)
	require.Nil(t, issued.LastUsedAt)

	_, err = svc.Validate(ctx, issued.RawToken)
	require.NoError(t, err)

	record, err := s.GetTokenByID(issued.ID)
	require.NoError(t, err)
	assert.NotNil(t, record.LastUsedAt)
}

func TestTokenList(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)
	user := createServiceUser(t, s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Issue(ctx, user, "t")
		require.NoError(t, err)
	}

	tokens, pagination, err := svc.List(ctx, user.ID, store.NewPaginationParams(1, 10, ""))
	require.NoError(t, err)
	assert.Len(t, tokens, 3)
	assert.Equal(t, int64(3), pagination.Total)
	for _, tok := range tokens {
		assert.Empty(t, tok.RawToken)
	}
}

func TestTokenSweep(t *testing.T) {
	s := setupServiceStore(t)
	shortLived := newTestTokenService(t, s, time.Millisecond)
	live := newTestTokenService(t, s, time.Hour)
	user := createServiceUser(t, s)
	ctx := context.Background()

	_, err := shortLived.Issue(ctx, user, "stale")
	require.NoError(t, err)
	kept, err := live.Issue(ctx, user, "fresh")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	deleted, err := live.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = live.Validate(ctx, kept.RawToken)
	assert.NoError(t, err)
}

func TestTokenFormatAndType(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestTokenService(t, s, time.Hour)

	assert.Equal(t, "opaque", svc.Format())
	assert.Equal(t, "Bearer", svc.TokenType())
}
