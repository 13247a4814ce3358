package hasher

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash returns the hex encoded SHA-256 digest of s.
// Refresh tokens are stored only in this form.
func Hash(s string) string {
	return SumBytes([]byte(s))
}

// SumBytes is Hash for raw bytes.
func SumBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Verify reports whether plain hashes to hash. Comparison is constant time.
func Verify(plain, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(plain)), []byte(hash)) == 1
}
