package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-passgate/passgate/internal/auth"
	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/store"

	"gorm.io/gorm"
)

const (
	AuthModeLocal   = "local"
	AuthModeHTTPAPI = "http_api"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrAuthProviderFailed = errors.New("authentication provider failed")
	ErrUserSyncFailed     = errors.New("failed to sync user from external provider")

	// ErrOAuthAutoRegisterDisabled is returned when a first-time OAuth
	// identity arrives while auto-registration is switched off.
	ErrOAuthAutoRegisterDisabled = errors.New("OAuth auto-registration is disabled")

	ErrInvalidRole = errors.New("invalid role")
)

// UserService routes credential verification to the configured provider
// and owns the principal cache.
type UserService struct {
	store           *store.Store
	localProvider   *auth.LocalAuthProvider
	httpAPIProvider *auth.HTTPAPIAuthProvider
	authMode        string
	userCache       core.Cache[models.User]
	cacheTTL        time.Duration
	metrics         core.Recorder
}

func NewUserService(
	s *store.Store,
	localProvider *auth.LocalAuthProvider,
	httpAPIProvider *auth.HTTPAPIAuthProvider,
	authMode string,
	userCache core.Cache[models.User],
	cacheTTL time.Duration,
	metrics core.Recorder,
) *UserService {
	return &UserService{
		store:           s,
		localProvider:   localProvider,
		httpAPIProvider: httpAPIProvider,
		authMode:        authMode,
		userCache:       userCache,
		cacheTTL:        cacheTTL,
		metrics:         metrics,
	}
}

// Authenticate verifies a username/password pair. It returns
// ErrInvalidCredentials for every bad-credential shape (unknown username,
// wrong password, external account without a local password) and a
// store.ErrStoreUnavailable-wrapped error when the database itself failed.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	start := time.Now()

	existingUser, err := s.store.GetUserByUsername(username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	// A login that looks like an email address may also match by email.
	if errors.Is(err, gorm.ErrRecordNotFound) && strings.Contains(username, "@") {
		existingUser, err = s.store.GetUserByEmail(username)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
		}
	}

	// If user exists, authenticate based on their auth_source
	if err == nil {
		user, authErr := s.authenticateExistingUser(ctx, existingUser, password)
		s.metrics.RecordAuthAttempt(existingUser.AuthSource, authErr == nil, time.Since(start))
		return user, authErr
	}

	// User doesn't exist - try to create via external auth if configured
	if s.authMode == AuthModeHTTPAPI {
		user, authErr := s.authenticateAndCreateExternalUser(ctx, username, password)
		s.metrics.RecordAuthAttempt(AuthModeHTTPAPI, authErr == nil, time.Since(start))
		return user, authErr
	}

	// No matching principal. Burn a password comparison so the miss is
	// not observable by timing, then fail the same way a mismatch does.
	if s.localProvider != nil {
		_, _ = s.localProvider.Authenticate(ctx, username, password)
	}
	s.metrics.RecordAuthAttempt(AuthModeLocal, false, time.Since(start))
	return nil, ErrInvalidCredentials
}

// authenticateExistingUser dispatches on the principal's auth_source
func (s *UserService) authenticateExistingUser(
	ctx context.Context,
	user *models.User,
	password string,
) (*models.User, error) {
	var authResult *auth.Result
	var err error
	var providerName string

	switch user.AuthSource {
	case AuthModeHTTPAPI:
		if s.httpAPIProvider == nil {
			return nil, fmt.Errorf("%w: HTTP API provider not configured", ErrAuthProviderFailed)
		}
		providerName = "HTTP API"
		authResult, err = s.httpAPIProvider.Authenticate(ctx, user.Username, password)

		// Refresh the local mirror after a successful remote verify.
		if err == nil && authResult.Success {
			updatedUser, syncErr := s.syncExternalUser(authResult, AuthModeHTTPAPI)
			if syncErr != nil {
				log.Printf("[Auth] Sync failed for user=%s: %v", user.Username, syncErr)
			} else {
				user = updatedUser
			}
		}

	case AuthModeLocal:
		fallthrough
	default:
		if s.localProvider == nil {
			return nil, fmt.Errorf("%w: local provider not configured", ErrAuthProviderFailed)
		}
		providerName = AuthModeLocal
		authResult, err = s.localProvider.Authenticate(ctx, user.Username, password)
	}

	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			return nil, err
		}
		log.Printf("[Auth] Failed for user=%s provider=%s: %v", user.Username, providerName, err)
		return nil, ErrInvalidCredentials
	}

	if !authResult.Success {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// authenticateAndCreateExternalUser handles a first login that only the
// remote verification API knows about
func (s *UserService) authenticateAndCreateExternalUser(
	ctx context.Context,
	username, password string,
) (*models.User, error) {
	if s.httpAPIProvider == nil {
		return nil, fmt.Errorf("%w: HTTP API provider not configured", ErrAuthProviderFailed)
	}

	authResult, err := s.httpAPIProvider.Authenticate(ctx, username, password)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !authResult.Success {
		return nil, ErrInvalidCredentials
	}

	user, err := s.syncExternalUser(authResult, AuthModeHTTPAPI)
	if err != nil {
		log.Printf("[Auth] Failed to create user=%s: %v", username, err)
		return nil, ErrUserSyncFailed
	}

	log.Printf("[Auth] New external user created: %s", username)
	return user, nil
}

// syncExternalUser mirrors a remote identity into the local principals table
func (s *UserService) syncExternalUser(
	result *auth.Result,
	authSource string,
) (*models.User, error) {
	user, err := s.store.UpsertExternalUser(
		result.Username,
		result.ExternalID,
		authSource,
		result.Email,
		result.FullName,
		"",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert external user: %w", err)
	}

	s.InvalidateUserCache(context.Background(), user.ID)
	return user, nil
}

// SyncOAuthUser creates or updates a local principal from an OAuth
// provider's user info.
func (s *UserService) SyncOAuthUser(
	ctx context.Context,
	info *auth.OAuthUserInfo,
	provider string,
) (*models.User, error) {
	user, err := s.store.UpsertExternalUser(
		info.Username,
		info.ProviderUserID,
		provider,
		info.Email,
		info.FullName,
		info.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, store.ErrUsernameConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUserSyncFailed, err)
	}

	s.InvalidateUserCache(ctx, user.ID)
	return user, nil
}

// GetUserByID loads a principal through the cache-aside layer. Misses
// fall through to the database and populate the cache.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if s.userCache != nil {
		user, err := s.userCache.GetWithFetch(
			ctx,
			"user:"+id,
			s.cacheTTL,
			func(ctx context.Context, _ string) (models.User, error) {
				u, err := s.store.GetUserByID(id)
				if err != nil {
					return models.User{}, err
				}
				return *u, nil
			},
		)
		if err == nil {
			return &user, nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		// Cache layer failure falls through to the database.
	}

	user, err := s.store.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return user, nil
}

// GetUserByExternalID finds a principal by provider identity.
func (s *UserService) GetUserByExternalID(
	ctx context.Context,
	externalID, authSource string,
) (*models.User, error) {
	user, err := s.store.GetUserByExternalID(externalID, authSource)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return user, nil
}

// SetUserRole changes a principal's role and drops its cache entry.
func (s *UserService) SetUserRole(ctx context.Context, id, role string) (*models.User, error) {
	if role != "admin" && role != "user" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	user, err := s.store.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	user.Role = role
	if err := s.store.UpdateUser(user); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	s.InvalidateUserCache(ctx, id)
	return user, nil
}

// DeleteUser removes a principal and drops its cache entry. The caller is
// responsible for revoking the principal's sessions and tokens.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.store.GetUserByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	if err := s.store.DeleteUser(id); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	s.InvalidateUserCache(ctx, id)
	return nil
}

// InvalidateUserCache drops a principal's cache entry after any mutation.
func (s *UserService) InvalidateUserCache(ctx context.Context, id string) {
	if s.userCache == nil {
		return
	}
	if err := s.userCache.Delete(ctx, "user:"+id); err != nil {
		log.Printf("[Auth] Failed to invalidate user cache for id=%s: %v", id, err)
	}
}
