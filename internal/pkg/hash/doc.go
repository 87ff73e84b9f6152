// Package hash hashes passwords and OTP codes.
//
// Passwords go through bcrypt or Argon2id with a configured pepper. OTP codes
// go through HMAC-SHA256 so the digest is deterministic and can be matched
// in SQL without the plain code ever reaching the database.
package hash
