package token

import "github.com/go-passgate/passgate/internal/core"

// Token type constants
const (
	TokenTypeBearer = "Bearer"

	// OpaquePrefix marks raw opaque tokens so leaked values are easy to
	// recognize in scanners and logs.
	OpaquePrefix = "pg_"
)

// Minted is an alias for core.MintedToken.
// All existing callers using *token.Minted continue to compile unchanged.
type Minted = core.MintedToken
