package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-passgate/passgate/internal/core"
	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/store"
	"github.com/go-passgate/passgate/internal/util"

	"gorm.io/gorm"
)

const (
	// sessionIDBytes yields a 128-bit identifier; sessionSecretBytes a
	// 256-bit secret. Both halves are required to resolve a session.
	sessionIDBytes     = 16
	sessionSecretBytes = 32

	sessionSaltLength = 32
)

var (
	// ErrSessionInvalid covers every unauthenticated shape: unknown id,
	// expired row, wrong secret, malformed cookie value. Callers must not
	// be able to tell these apart.
	ErrSessionInvalid = errors.New("session invalid or expired")
)

// SessionService owns the server-side session lifecycle. The client holds
// an opaque "<id>.<secret>" value; the row stores only a PBKDF2 hash of
// the secret half.
type SessionService struct {
	store   *store.Store
	ttl     time.Duration
	sliding bool
	metrics core.Recorder
}

func NewSessionService(
	s *store.Store,
	ttl time.Duration,
	sliding bool,
	metrics core.Recorder,
) *SessionService {
	return &SessionService{
		store:   s,
		ttl:     ttl,
		sliding: sliding,
		metrics: metrics,
	}
}

// Create mints a fresh session for the principal and returns the opaque
// client value. The raw secret is not recoverable afterwards.
func (s *SessionService) Create(
	ctx context.Context,
	user *models.User,
	ip, userAgent string,
) (string, *models.Session, error) {
	id, err := util.CryptoRandomURLSafe(sessionIDBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	secret, err := util.CryptoRandomURLSafe(sessionSecretBytes)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	salt, err := util.CryptoRandomString(sessionSaltLength)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session salt: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		ID:         id,
		SecretHash: util.HashSecret(secret, salt),
		SecretSalt: salt,
		UserID:     user.ID,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
		LastSeenAt: now,
	}

	if err := s.store.CreateSession(session); err != nil {
		return "", nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	s.metrics.RecordSessionCreated(models.ChannelSession)
	return id + "." + secret, session, nil
}

// Resolve maps an opaque client value back to its principal. Expiry is
// checked lazily: an expired row is deleted here and the caller sees the
// same ErrSessionInvalid as for an unknown id.
func (s *SessionService) Resolve(ctx context.Context, value string) (*models.Session, error) {
	id, secret, ok := splitSessionValue(value)
	if !ok {
		s.metrics.RecordSessionResolved("malformed")
		return nil, ErrSessionInvalid
	}

	session, err := s.store.GetSessionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordSessionResolved("miss")
			return nil, ErrSessionInvalid
		}
		s.metrics.RecordSessionResolved("error")
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	if !util.VerifySecret(secret, session.SecretSalt, session.SecretHash) {
		s.metrics.RecordSessionResolved("bad_secret")
		return nil, ErrSessionInvalid
	}

	if session.IsExpired() {
		// Reclaim the row; failure to delete does not change the outcome.
		if err := s.store.DeleteSession(session.ID); err != nil {
			log.Printf("[Session] Failed to delete expired session %s: %v", session.ID, err)
		}
		s.metrics.RecordSessionResolved("expired")
		return nil, ErrSessionInvalid
	}

	if s.sliding {
		now := time.Now()
		if err := s.store.TouchSession(session.ID, now.Add(s.ttl), now); err != nil {
			log.Printf("[Session] Failed to touch session %s: %v", session.ID, err)
		} else {
			session.ExpiresAt = now.Add(s.ttl)
			session.LastSeenAt = now
		}
	}

	s.metrics.RecordSessionResolved("hit")
	return session, nil
}

// Revoke deletes a session by its client value. Unknown and already
// revoked sessions succeed; revocation is idempotent.
func (s *SessionService) Revoke(ctx context.Context, value string) error {
	id, _, ok := splitSessionValue(value)
	if !ok {
		return nil
	}
	return s.RevokeByID(ctx, id)
}

// RevokeByID deletes a session row directly.
func (s *SessionService) RevokeByID(ctx context.Context, id string) error {
	if err := s.store.DeleteSession(id); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	s.metrics.RecordSessionRevoked("logout")
	return nil
}

// RevokeAll deletes every session of a principal.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	if err := s.store.DeleteSessionsByUserID(userID); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	s.metrics.RecordSessionRevoked("revoke_all")
	return nil
}

// List returns a principal's sessions, newest first.
func (s *SessionService) List(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := s.store.GetSessionsByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return sessions, nil
}

// Sweep removes expired session rows. Run periodically; correctness does
// not depend on it.
func (s *SessionService) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions()
}

// splitSessionValue splits "<id>.<secret>" into its halves.
func splitSessionValue(value string) (id, secret string, ok bool) {
	id, secret, found := strings.Cut(value, ".")
	if !found || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}
