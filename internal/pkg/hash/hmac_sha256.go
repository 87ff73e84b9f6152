package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HMACSHA256 implements Hash with a keyed SHA-256 digest.
//
// The output is deterministic for a given secret, which makes it usable as a
// lookup key for short-lived codes.
type HMACSHA256 struct {
	secret []byte
}

// NewHMACSHA256 creates a new hasher with a secret.
func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{secret: []byte(secret)}
}

// Hash returns the hex-encoded HMAC of str.
func (s *HMACSHA256) Hash(str string) ([]byte, error) {
	return s.gen(str), nil
}

// Verify compares in constant time.
func (s *HMACSHA256) Verify(hashed, str string) bool {
	expected := s.gen(str)
	return subtle.ConstantTimeCompare([]byte(hashed), expected) == 1
}

func (s *HMACSHA256) gen(str string) []byte {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(str))
	sum := h.Sum(nil)
	result := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(result, sum)
	return result
}
