package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher wraps bcrypt with a configured cost. Each Hash call
// draws a fresh random salt, so hashing the same password twice yields
// different digests that both verify.
type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

// NewPasswordHasher creates a hasher with the given bcrypt cost. Costs
// outside bcrypt's supported range fall back to the library default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Precomputed digest of an unguessable value, used to equalize
	// timing when the principal does not exist.
	dummy, err := bcrypt.GenerateFromPassword([]byte("passgate-no-such-user"), cost)
	if err != nil {
		// Only reachable with an invalid cost, which is checked above.
		panic(err)
	}
	return &PasswordHasher{cost: cost, dummyHash: dummy}
}

// Hash derives a salted digest from a plaintext password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches the stored digest.
func (h *PasswordHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// CompareDummy burns one bcrypt comparison against a throwaway digest.
// Called on the unknown-username path so lookup misses cost the same
// as password mismatches.
func (h *PasswordHasher) CompareDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}

// Cost returns the configured bcrypt cost.
func (h *PasswordHasher) Cost() int {
	return h.cost
}
