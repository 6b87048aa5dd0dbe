// Package auth registers accounts and verifies credentials against stored digests.
//
// Digests are unsalted SHA-256 so that a given password always maps to the same
// stored value. That is only acceptable for demonstration deployments; do not
// reuse this package to guard real credentials.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hasher turns a plaintext password into a comparable digest.
type Hasher interface {
	Hash(password string) string
	Matches(password, digest string) bool
}

// SHA256Hasher produces lowercase hex SHA-256 digests.
type SHA256Hasher struct{}

func (SHA256Hasher) Hash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (h SHA256Hasher) Matches(password, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(password)), []byte(digest)) == 1
}
