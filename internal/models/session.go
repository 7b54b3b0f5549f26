package models

import (
	"time"
)

// Session is a server-side record linking an opaque client-held identifier
// to a principal. The cookie carries "<id>.<secret>"; only the PBKDF2 hash
// of the secret half is persisted, so a leaked database cannot be replayed
// as live sessions. Rows are deleted on revocation; expiry is checked
// lazily at resolve time.
type Session struct {
	ID         string `gorm:"primaryKey"`
	SecretHash string `gorm:"not null"`
	SecretSalt string `gorm:"not null"`
	UserID     string `gorm:"not null;index"`

	IP        string
	UserAgent string

	CreatedAt  time.Time
	ExpiresAt  time.Time `gorm:"index"`
	LastSeenAt time.Time
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
