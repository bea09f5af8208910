package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrInvalidCredentials is returned when a password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// argon2idParams follows the OWASP minimum parameters for Argon2id.
// Memory: 47 MiB, Iterations: 1, Parallelism: 1
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword returns an Argon2id hash of the password in PHC format.
// Format: $argon2id$v=19$m=48128,t=1,p=1$<salt>$<hash>
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return argon2id.CreateHash(password, argon2idParams)
}

// VerifyPassword checks a password against a stored PHC-format hash.
// Returns (true, nil) on match, (false, nil) on mismatch, and an error for
// malformed hashes. Never panics: the underlying argon2 library panics on
// hashes with invalid parameters, which is converted to an error here.
func VerifyPassword(password, storedHash string) (match bool, err error) {
	if !strings.HasPrefix(storedHash, "$argon2id$") {
		return false, errors.New("unknown hash format")
	}
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(password, storedHash)
}
