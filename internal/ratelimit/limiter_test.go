package ratelimit

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

// =============================================================================
// Generators for property-based testing
// =============================================================================

// keyGenerator generates valid limiter keys
func keyGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z0-9:]{8,32}`)
}

// =============================================================================
// Property: Attempts within the burst allowance succeed
// =============================================================================

func testLimiter_AttemptsWithinBurst(t *rapid.T) {
	config := Config{
		RPS:             100.0, // High enough to not interfere during the test
		Burst:           200,
		CleanupInterval: time.Hour,
	}

	l := NewLimiter(config)
	defer l.Stop()

	key := keyGenerator().Draw(t, "key")
	numAttempts := rapid.IntRange(1, config.Burst/2).Draw(t, "numAttempts")

	for i := 0; i < numAttempts; i++ {
		if !l.Allow(key) {
			t.Fatalf("attempt %d of %d should have been allowed (burst %d)", i+1, numAttempts, config.Burst)
		}
	}
}

func TestLimiter_AttemptsWithinBurst(t *testing.T) {
	rapid.Check(t, testLimiter_AttemptsWithinBurst)
}

func FuzzLimiter_AttemptsWithinBurst(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testLimiter_AttemptsWithinBurst))
}

// =============================================================================
// Property: Attempts beyond the burst allowance are blocked
// =============================================================================

func testLimiter_ExceedingBurstBlocked(t *rapid.T) {
	config := Config{
		RPS:             0.001, // Negligible refill during the test
		Burst:           rapid.IntRange(1, 10).Draw(t, "burst"),
		CleanupInterval: time.Hour,
	}

	l := NewLimiter(config)
	defer l.Stop()

	key := keyGenerator().Draw(t, "key")
	for i := 0; i < config.Burst; i++ {
		l.Allow(key)
	}

	if l.Allow(key) {
		t.Fatalf("attempt beyond burst of %d should have been blocked", config.Burst)
	}
}

func TestLimiter_ExceedingBurstBlocked(t *testing.T) {
	rapid.Check(t, testLimiter_ExceedingBurstBlocked)
}

func FuzzLimiter_ExceedingBurstBlocked(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testLimiter_ExceedingBurstBlocked))
}

// =============================================================================
// Property: Different keys have independent budgets
// =============================================================================

func testLimiter_KeyIndependence(t *rapid.T) {
	config := Config{
		RPS:             0.001,
		Burst:           5,
		CleanupInterval: time.Hour,
	}

	l := NewLimiter(config)
	defer l.Stop()

	key1 := keyGenerator().Draw(t, "key1")
	key2 := keyGenerator().Filter(func(s string) bool {
		return s != key1
	}).Draw(t, "key2")

	// Exhaust key1's budget.
	for i := 0; i < config.Burst; i++ {
		l.Allow(key1)
	}
	if l.Allow(key1) {
		t.Fatalf("key1 should be exhausted")
	}

	if !l.Allow(key2) {
		t.Fatalf("key2 should be unaffected by key1's exhaustion")
	}
}

func TestLimiter_KeyIndependence(t *testing.T) {
	rapid.Check(t, testLimiter_KeyIndependence)
}

func FuzzLimiter_KeyIndependence(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testLimiter_KeyIndependence))
}

// =============================================================================
// Cleanup
// =============================================================================

func TestLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	t.Parallel()
	config := Config{
		RPS:             1,
		Burst:           1,
		CleanupInterval: 10 * time.Millisecond,
	}

	l := NewLimiter(config)
	defer l.Stop()

	l.Allow("idle-key")
	if l.Len() != 1 {
		t.Fatalf("len = %d, want 1", l.Len())
	}

	time.Sleep(20 * time.Millisecond)
	l.Cleanup()
	if l.Len() != 0 {
		t.Fatalf("len = %d after cleanup, want 0", l.Len())
	}
}
