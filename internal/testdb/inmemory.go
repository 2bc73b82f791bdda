// Package testdb creates isolated in-memory stores for tests.
package testdb

import "github.com/quickmark-app/quickmark/internal/store"

// NewStoreInMemory creates a fresh, fully isolated in-memory store. The
// minimal interface accepts both *testing.T and *rapid.T.
func NewStoreInMemory(t interface {
	Fatalf(format string, args ...any)
}) *store.Store {
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	return st
}
