package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password hashing schemes accepted by HashPassword.
const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

// Match describes how a password matched its stored hash.
type Match int

const (
	NoMatch Match = iota
	MatchSHA256
	MatchBcrypt
	// MatchPlaintext means the stored column held the password itself. The
	// bundled demo data does this; it is accepted for compatibility only.
	MatchPlaintext
)

// SHA256Hex returns the lowercase hex SHA-256 digest of plain.
func SHA256Hex(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// HashPassword hashes plain with the given scheme. Unknown schemes fall back
// to sha256 so that existing data stays readable by every deployment.
func HashPassword(plain, scheme string, cost int) (string, error) {
	if scheme == SchemeBcrypt {
		b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return SHA256Hex(plain), nil
}

// VerifyPassword compares plain against the stored hash: bcrypt hashes are
// checked with bcrypt, everything else against the sha256 hex digest and
// finally against the stored value verbatim.
func VerifyPassword(stored, plain string) Match {
	if stored == "" {
		return NoMatch
	}
	if isBcrypt(stored) {
		if bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil {
			return MatchBcrypt
		}
		return NoMatch
	}
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(stored)), []byte(SHA256Hex(plain))) == 1 {
		return MatchSHA256
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1 {
		return MatchPlaintext
	}
	return NoMatch
}

func isBcrypt(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
