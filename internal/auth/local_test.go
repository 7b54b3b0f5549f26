package auth

import (
	"context"
	"testing"

	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New("sqlite", ":memory:", &config.Config{})
	require.NoError(t, err)
	return s
}

func createLocalUser(t *testing.T, s *store.Store, h *PasswordHasher, password string) *models.User {
	t.Helper()
	digest, err := h.Hash(password)
	require.NoError(t, err)
	u := &models.User{
		ID:           uuid.New().String(),
		Username:     "alice-" + uuid.New().String()[:8],
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: digest,
		Role:         "user",
		AuthSource:   "local",
	}
	require.NoError(t, s.CreateUser(u))
	return u
}

func TestLocalAuthProvider_Success(t *testing.T) {
	s := setupTestStore(t)
	h := NewPasswordHasher(bcrypt.MinCost)
	u := createLocalUser(t, s, h, "correct horse")

	p := NewLocalAuthProvider(s, h)
	result, err := p.Authenticate(context.Background(), u.Username, "correct horse")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, u.Username, result.Username)
	assert.Equal(t, u.Email, result.Email)
}

func TestLocalAuthProvider_WrongPassword(t *testing.T) {
	s := setupTestStore(t)
	h := NewPasswordHasher(bcrypt.MinCost)
	u := createLocalUser(t, s, h, "correct horse")

	p := NewLocalAuthProvider(s, h)
	result, err := p.Authenticate(context.Background(), u.Username, "battery staple")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, result)
}

func TestLocalAuthProvider_UnknownUser(t *testing.T) {
	s := setupTestStore(t)
	h := NewPasswordHasher(bcrypt.MinCost)

	p := NewLocalAuthProvider(s, h)
	result, err := p.Authenticate(context.Background(), "nobody", "whatever")

	// Unknown username and wrong password are indistinguishable
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, result)
}

func TestLocalAuthProvider_ExternalUserHasNoLocalPassword(t *testing.T) {
	s := setupTestStore(t)
	h := NewPasswordHasher(bcrypt.MinCost)

	u := &models.User{
		ID:         uuid.New().String(),
		Username:   "oauth-user",
		Email:      "oauth@example.com",
		AuthSource: "github",
		ExternalID: "12345",
	}
	require.NoError(t, s.CreateUser(u))

	p := NewLocalAuthProvider(s, h)
	_, err := p.Authenticate(context.Background(), "oauth-user", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLocalAuthProvider_Name(t *testing.T) {
	p := NewLocalAuthProvider(nil, NewPasswordHasher(bcrypt.MinCost))
	assert.Equal(t, "local", p.Name())
}
