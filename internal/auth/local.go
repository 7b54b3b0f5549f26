package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-passgate/passgate/internal/store"

	"gorm.io/gorm"
)

// LocalAuthProvider verifies credentials against the local database.
type LocalAuthProvider struct {
	store  *store.Store
	hasher *PasswordHasher
}

// NewLocalAuthProvider creates a new local authentication provider
func NewLocalAuthProvider(s *store.Store, hasher *PasswordHasher) *LocalAuthProvider {
	return &LocalAuthProvider{store: s, hasher: hasher}
}

// Authenticate verifies credentials against the local database. An unknown
// username and a wrong password both return ErrInvalidCredentials; a store
// failure surfaces as its own error so callers can answer 503 instead of 401.
func (p *LocalAuthProvider) Authenticate(
	ctx context.Context,
	username, password string,
) (*Result, error) {
	user, err := p.store.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Burn a comparison so a miss takes as long as a mismatch.
			p.hasher.CompareDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	if user.IsExternal() || user.PasswordHash == "" {
		// External accounts have no local password.
		p.hasher.CompareDummy(password)
		return nil, ErrInvalidCredentials
	}

	if !p.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return &Result{
		Username:   user.Username,
		ExternalID: "", // Local users don't have external IDs
		Email:      user.Email,
		FullName:   user.FullName,
		Success:    true,
	}, nil
}

// Name returns provider name for logging
func (p *LocalAuthProvider) Name() string {
	return "local"
}
