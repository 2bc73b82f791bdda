package shares

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

const (
	// ShareCodeLength is the length of generated share codes.
	// 10 characters from a 64-character set gives 60 bits of entropy.
	ShareCodeLength = 10

	// MaxCollisionRetries is the maximum number of regeneration attempts
	// when a generated code collides with an existing one.
	MaxCollisionRetries = 10
)

// Charset for share codes: [a-zA-Z0-9_-] = 64 characters.
// URL-safe base64 characters for easy embedding in URLs.
const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// GenerateShareCode generates a random URL-safe share code using
// cryptographically secure random bytes.
func GenerateShareCode() (string, error) {
	// Each character consumes 6 bits; 10 characters fit in the 64 bits
	// of a single uint64 draw.
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	n := binary.BigEndian.Uint64(bytes)

	result := make([]byte, ShareCodeLength)
	for i := range result {
		result[i] = charset[n&0x3f]
		n >>= 6
	}
	return string(result), nil
}
