package cache

import "errors"

// Sentinel errors shared by every backend. Callers branch on ErrCacheMiss
// to fall through to the database; anything else is a backend fault.
var (
	ErrCacheMiss        = errors.New("cache: miss")
	ErrCacheUnavailable = errors.New("cache: backend unavailable")
	ErrInvalidValue     = errors.New("cache: stored value not decodable")
)
