package util

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// CryptoRandomBytes generates cryptographically secure random bytes
func CryptoRandomBytes(length int64) ([]byte, error) {
	buf := make([]byte, length)
	_, err := rand.Read(buf)
	return buf, err
}

// CryptoRandomString generates a random hex string for salts
func CryptoRandomString(length int) (string, error) {
	bytes, err := CryptoRandomBytes(int64((length + 1) / 2))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}

// CryptoRandomURLSafe generates an unguessable base64url string from
// the given number of random bytes. 32 bytes gives 256 bits of entropy.
func CryptoRandomURLSafe(bytes int64) (string, error) {
	buf, err := CryptoRandomBytes(bytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSecret returns the PBKDF2 hash of secret with salt.
// Parameters match Gitea's implementation for security consistency.
func HashSecret(secret, salt string) string {
	hash := pbkdf2.Key([]byte(secret), []byte(salt), 10000, 50, sha256.New)
	return hex.EncodeToString(hash)
}

// VerifySecret reports whether secret matches the stored PBKDF2 hash.
// The comparison is constant-time.
func VerifySecret(secret, salt, storedHash string) bool {
	computed := HashSecret(secret, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// SHA256Hex returns the SHA-256 hash of s as a lowercase hex string.
// Intended for use with high-entropy, unguessable values (e.g., randomly
// generated tokens); for such inputs, a salt is not required for security.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
