package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/store"
	"github.com/go-passgate/passgate/internal/token"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrTokenInvalid is the single unauthenticated outcome for token
	// validation: unknown, revoked, expired and malformed tokens all
	// collapse into it.
	ErrTokenInvalid = errors.New("token invalid, revoked or expired")

	// ErrTokenNotFound is returned when a management operation names a
	// token that does not exist or belongs to another principal.
	ErrTokenNotFound = errors.New("token not found")
)

// TokenService issues, validates and revokes bearer tokens. A principal
// may hold any number of live tokens; issuing never invalidates earlier
// ones. Every token has a row keyed by digest, so revocation works the
// same for opaque and JWT formats.
type TokenService struct {
	store    *store.Store
	provider core.TokenProvider
	ttl      time.Duration
	metrics  core.Recorder
}

func NewTokenService(
	s *store.Store,
	provider core.TokenProvider,
	ttl time.Duration,
	metrics core.Recorder,
) *TokenService {
	return &TokenService{
		store:    s,
		provider: provider,
		ttl:      ttl,
		metrics:  metrics,
	}
}

// Issue mints a new bearer token for the principal. The returned record
// carries the raw token exactly once; it is never persisted or shown again.
func (s *TokenService) Issue(
	ctx context.Context,
	user *models.User,
	label string,
) (*models.BearerToken, error) {
	start := time.Now()

	minted, err := s.provider.Mint(ctx, user.ID, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}

	lastEight := minted.Raw
	if len(lastEight) > 8 {
		lastEight = lastEight[len(lastEight)-8:]
	}

	record := &models.BearerToken{
		ID:          uuid.New().String(),
		TokenHash:   minted.Digest,
		RawToken:    minted.Raw,
		TokenLastE8: lastEight,
		Label:       label,
		Status:      models.TokenStatusActive,
		UserID:      user.ID,
		Format:      s.provider.Name(),
		ExpiresAt:   minted.ExpiresAt,
		CreatedAt:   time.Now(),
	}

	if err := s.store.CreateToken(record); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	s.metrics.RecordTokenIssued(s.provider.Name(), time.Since(start))
	return record, nil
}

// Validate maps a presented raw token to its principal's token record.
// Format-level failures, unknown digests, revoked status and lazy expiry
// all return ErrTokenInvalid; only store failures surface differently.
func (s *TokenService) Validate(ctx context.Context, raw string) (*models.BearerToken, error) {
	start := time.Now()

	digest, err := s.provider.Digest(raw)
	if err != nil {
		// Signature, expiry and prefix failures never reach the store.
		s.metrics.RecordTokenValidation("malformed", time.Since(start))
		return nil, ErrTokenInvalid
	}

	record, err := s.store.GetTokenByHash(digest)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordTokenValidation("miss", time.Since(start))
			return nil, ErrTokenInvalid
		}
		s.metrics.RecordTokenValidation("error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	if record.IsRevoked() {
		s.metrics.RecordTokenValidation("revoked", time.Since(start))
		return nil, ErrTokenInvalid
	}

	if record.IsExpired() {
		s.metrics.RecordTokenValidation("expired", time.Since(start))
		return nil, ErrTokenInvalid
	}

	if err := s.store.TouchTokenUsed(record.ID, time.Now()); err != nil {
		log.Printf("[Token] Failed to record last use for token %s: %v", record.ID, err)
	}

	s.metrics.RecordTokenValidation("hit", time.Since(start))
	return record, nil
}

// Revoke marks one of the principal's tokens revoked. Tokens of other
// principals are indistinguishable from nonexistent ones. Revoking an
// already revoked token succeeds.
func (s *TokenService) Revoke(ctx context.Context, userID, tokenID string) error {
	record, err := s.store.GetTokenByID(tokenID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	if record.UserID != userID {
		return ErrTokenNotFound
	}

	if record.IsRevoked() {
		return nil
	}

	if err := s.store.UpdateTokenStatus(tokenID, models.TokenStatusRevoked); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	s.metrics.RecordTokenRevoked("single")
	return nil
}

// RevokeAll marks every active token of a principal revoked.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.store.RevokeTokensByUserID(userID); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	s.metrics.RecordTokenRevoked("all")
	return nil
}

// List returns one page of a principal's tokens, raw values omitted.
func (s *TokenService) List(
	ctx context.Context,
	userID string,
	params store.PaginationParams,
) ([]models.BearerToken, store.PaginationResult, error) {
	tokens, pagination, err := s.store.GetTokensByUserIDPaginated(userID, params)
	if err != nil {
		return nil, store.PaginationResult{}, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return tokens, pagination, nil
}

// Sweep removes expired token rows. Lazy expiry at validate time remains
// the correctness mechanism.
func (s *TokenService) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredTokens()
}

// Format reports the wire format this service issues.
func (s *TokenService) Format() string {
	return s.provider.Name()
}

// TokenType reports the HTTP auth scheme for issued tokens.
func (s *TokenService) TokenType() string {
	return token.TokenTypeBearer
}
