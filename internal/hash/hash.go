// Package hash provides one-way password hashing for password-protected
// notes and shares. Stored hashes use the Argon2id PHC string format so
// parameters travel with the hash and can be tuned without migrations.
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Hasher hashes and verifies passwords. Verify must tolerate arbitrary
// (possibly corrupt) stored hashes and report false rather than fail.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) bool
}

// Argon2id parameters (OWASP second recommendation: m=19456, t=2, p=1).
// Parameters are embedded in each hash string, so hashes produced with
// other params still verify correctly.
const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024 // ~19 MiB
	argon2Threads = 1
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Argon2Hasher implements Hasher with Argon2id.
type Argon2Hasher struct{}

// Hash hashes a password using Argon2id.
func (Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedSum := base64.RawStdEncoding.EncodeToString(sum)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argon2Memory, argon2Time, argon2Threads, encodedSalt, encodedSum), nil
}

// Verify checks if a password matches an encoded hash.
// Format: $argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
func (Argon2Hasher) Verify(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}
	if parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	saltBytes, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	sumBytes, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	sumLen := len(sumBytes)
	if sumLen <= 0 || sumLen > argon2KeyLen*2 {
		return false
	}

	computed := argon2.IDKey([]byte(password), saltBytes, time, memory, threads, uint32(sumLen))
	return subtle.ConstantTimeCompare(sumBytes, computed) == 1
}
