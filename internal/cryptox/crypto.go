// Package cryptox hashes account passwords with Argon2id.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

const (
	hashScheme = "argon2id"
	saltSize   = 16
)

// ErrMalformedHash is returned by VerifyPassword for a stored hash it cannot
// parse.
var ErrMalformedHash = errors.New("malformed password hash")

// DeriveKey stretches password with salt into a 32-byte key.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// HashPassword returns "argon2id$<salt>$<key>" with a fresh random salt,
// both parts hex encoded.
func HashPassword(password string) string {
	salt := common.GenerateRandByteArray(saltSize)
	key := DeriveKey([]byte(password), salt)
	return strings.Join([]string{hashScheme, hex.EncodeToString(salt), hex.EncodeToString(key)}, "$")
}

// VerifyPassword reports whether password matches a hash produced by
// HashPassword. The comparison runs in constant time.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != hashScheme {
		return false, ErrMalformedHash
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil {
		return false, ErrMalformedHash
	}

	got := DeriveKey([]byte(password), salt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
