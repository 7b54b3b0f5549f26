package models

import (
	"time"
)

// Token status constants
const (
	TokenStatusActive  = "active"
	TokenStatusRevoked = "revoked"
)

// BearerToken is an API credential presented per-request via the
// Authorization header. A principal may hold any number of concurrent
// tokens (one per client), each independently revocable. Only the digest
// of the raw token is persisted; the raw value is returned to the client
// exactly once at issuance.
type BearerToken struct {
	ID          string `gorm:"primaryKey"`
	TokenHash   string `gorm:"uniqueIndex;not null"`
	RawToken    string `gorm:"-"` // in-memory only, set at issuance
	TokenLastE8 string // last eight characters, for display
	Label       string // client-supplied name ("laptop CLI", "CI deploy key")

	Status string `gorm:"not null;default:'active';index"` // 'active' or 'revoked'
	UserID string `gorm:"not null;index"`
	Format string `gorm:"not null;default:'opaque'"` // 'opaque' or 'jwt'

	ExpiresAt  time.Time // zero means the token does not expire
	CreatedAt  time.Time
	LastUsedAt *time.Time `gorm:"index"`
}

// IsExpired returns true if the token carries an expiry that has passed.
func (t *BearerToken) IsExpired() bool {
	return !t.ExpiresAt.IsZero() && time.Now().After(t.ExpiresAt)
}

// IsActive returns true if token status is 'active'
func (t *BearerToken) IsActive() bool {
	return t.Status == TokenStatusActive
}

// IsRevoked returns true if token status is 'revoked'
func (t *BearerToken) IsRevoked() bool {
	return t.Status == TokenStatusRevoked
}
