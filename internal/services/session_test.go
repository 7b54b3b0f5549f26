package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/metrics"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServiceStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New("sqlite", ":memory:", &config.Config{})
	require.NoError(t, err)
	return s
}

func createServiceUser(t *testing.T, s *store.Store) *models.User {
	t.Helper()
	id := uuid.New().String()
	user := &models.User{
		ID:       id,
		Username: "user-" + id[:8],
		Email:    id[:8] + "@example.com",
		Role:     "user",
	}
	require.NoError(t, s.CreateUser(user))
	return user
}

func newTestSessionService(t *testing.T, s *store.Store, ttl time.Duration, sliding bool) *SessionService {
	t.Helper()
	return NewSessionService(s, ttl, sliding, metrics.NewNoopMetrics())
}

func TestSessionCreateAndResolve(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, time.Hour, false)
	user := createServiceUser(t, s)
	ctx := context.Background()

	value, session, err := svc.Create(ctx, user, "127.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.NotEmpty(t, value)
	assert.Equal(t, user.ID, session.UserID)
	assert.NotContains(t, session.SecretHash, value, "raw secret must not be stored")

	resolved, err := svc.Resolve(ctx, value)
	require.NoError(t, err)
	assert.Equal(t, session.ID, resolved.ID)
	assert.Equal(t, user.ID, resolved.UserID)
}

func TestSessionResolveRejectsWrongSecret(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, time.Hour, false)
	user := createServiceUser(t, s)
	ctx := context.Background()

	value, session, err := svc.Create(ctx, user, "127.0.0.1", "test-agent")
	require.NoError(t, err)
	_ = value

	_, err = svc.Resolve(ctx, session.ID+".wrong-secret")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionResolveRejectsMalformed(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, time.Hour, false)
	ctx := context.Background()

	for _, value := range []string{"", "no-dot", ".secret-only", "id-only."} {
		_, err := svc.Resolve(ctx, value)
		assert.ErrorIs(t, err, ErrSessionInvalid, "value %q", value)
	}
}

func TestSessionResolveRejectsUnknown(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, time.Hour, false)

	_, err := svc.Resolve(context.Background(), "unknown-id.some-secret")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestSessionResolveDeletesExpired(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, -time.Hour, false)
	user := createServiceUser(t, s)
	ctx := context.Background()

	value, session, err := svc.Create(ctx, user, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, value)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// The expired row is reclaimed during resolution.
	_, err = s.GetSessionByID(session.ID)
	assert.Error(t, err)
}

func TestSessionSlidingExpiryExtends(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, time.Hour, true)
	user := createServiceUser(t, s)
	ctx := context.Background()

	value, session, err := svc.Create(ctx, user, "127.0.0.1", "test-agent")
	require.NoError(t, err)
	originalExpiry := session.ExpiresAt

	time.Sleep(20 * time.Millisecond)

	resolved, err := svc.Resolve(ctx, value)
	require.NoError(t, err)
	assert.True(t, resolved.ExpiresAt.After(originalExpiry))
}

func TestSessionFixedExpiryDoesNotExtend(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, time.Hour, false)
	user := createServiceUser(t, s)
	ctx := context.Background()

	value, session, err := svc.Create(ctx, user, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	resolved, err := svc.Resolve(ctx, value)
	require.NoError(t, err)
	assert.True(t, resolved.ExpiresAt.Equal(session.ExpiresAt))
}

func TestSessionRevoke(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, time.Hour, false)
	user := createServiceUser(t, s)
	ctx := context.Background()

	value, _, err := svc.Create(ctx, user, "127.0.0.1", "test-agent")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, value))

	_, err = svc.Resolve(ctx, value)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// Revoking again, or revoking garbage, still succeeds.
	assert.NoError(t, svc.Revoke(ctx, value))
	assert.NoError(t, svc.Revoke(ctx, "not-a-session-value"))
}

func TestSessionRevokeAll(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, time.Hour, false)
	user := createServiceUser(t, s)
	other := createServiceUser(t, s)
	ctx := context.Background()

	v1, _, err := svc.Create(ctx, user, "127.0.0.1", "agent-1")
	require.NoError(t, err)
	v2, _, err := svc.Create(ctx, user, "127.0.0.2", "agent-2")
	require.NoError(t, err)
	otherValue, _, err := svc.Create(ctx, other, "127.0.0.3", "agent-3")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, user.ID))

	_, err = svc.Resolve(ctx, v1)
	assert.ErrorIs(t, err, ErrSessionInvalid)
	_, err = svc.Resolve(ctx, v2)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	// Another principal's session survives.
	_, err = svc.Resolve(ctx, otherValue)
	assert.NoError(t, err)
}

func TestSessionList(t *testing.T) {
	s := setupServiceStore(t)
	svc := newTestSessionService(t, s, time.Hour, false)
	user := createServiceUser(t, s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := svc.Create(ctx, user, "127.0.0.1", "agent")
		require.NoError(t, err)
	}

	sessions, err := svc.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestSessionSweep(t *testing.T) {
	s := setupServiceStore(t)
	expired := newTestSessionService(t, s, -time.Hour, false)
	live := newTestSessionService(t, s, time.Hour, false)
	user := createServiceUser(t, s)
	ctx := context.Background()

	_, _, err := expired.Create(ctx, user, "127.0.0.1", "agent")
	require.NoError(t, err)
	liveValue, _, err := live.Create(ctx, user, "127.0.0.1", "agent")
	require.NoError(t, err)

	deleted, err := live.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = live.Resolve(ctx, liveValue)
	assert.NoError(t, err)
}
