package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddleware_BlocksAfterBurst(t *testing.T) {
	t.Parallel()
	l := NewLimiter(Config{RPS: 0.001, Burst: 2, CleanupInterval: time.Hour})
	defer l.Stop()

	handler := Middleware(l, func(r *http.Request) string {
		return r.Header.Get("X-Key")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/unlock", nil)
		if key != "" {
			req.Header.Set("X-Key", key)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("k1"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d, want 204", i+1, rec.Code)
		}
	}

	rec := do("k1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}

	// A different key is unaffected.
	if rec := do("k2"); rec.Code != http.StatusNoContent {
		t.Fatalf("other key status = %d, want 204", rec.Code)
	}

	// An empty key bypasses limiting entirely.
	for i := 0; i < 5; i++ {
		if rec := do(""); rec.Code != http.StatusNoContent {
			t.Fatalf("keyless request status = %d, want 204", rec.Code)
		}
	}
}
