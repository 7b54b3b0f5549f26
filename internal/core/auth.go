package core

import "context"

// AuthResult holds the outcome of a credential verification attempt.
type AuthResult struct {
	Username   string
	ExternalID string // External user ID (e.g. remote API user ID, OAuth subject)
	Email      string // Optional
	FullName   string // Optional
	Success    bool
}

// AuthProvider is the interface that credential verification
// backends must implement.
type AuthProvider interface {
	Authenticate(ctx context.Context, username, password string) (*AuthResult, error)
	Name() string
}
