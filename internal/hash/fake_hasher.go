package hash

import "strings"

// FakeInsecureHasher implements Hasher with zero crypto overhead.
// Stores passwords as "$fake$<plaintext>" and verifies by string comparison.
// For use in tests ONLY, never in production.
type FakeInsecureHasher struct{}

func (FakeInsecureHasher) Hash(password string) (string, error) {
	return "$fake$" + password, nil
}

func (FakeInsecureHasher) Verify(password, encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$fake$") &&
		strings.TrimPrefix(encodedHash, "$fake$") == password
}
