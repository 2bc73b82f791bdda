package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quickmark-app/quickmark/internal/policy"
	"github.com/quickmark-app/quickmark/internal/testdb"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *policy.FakeClock) {
	t.Helper()
	clock := policy.NewFakeClock(testTime)
	st := testdb.NewStoreInMemory(t)
	t.Cleanup(func() { st.Close() })
	return NewService(st, clock, time.Hour), clock
}

func TestCreateValidate_Lifecycle(t *testing.T) {
	t.Parallel()
	svc, clock := newTestService(t)
	ctx := context.Background()

	sessionID, err := svc.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sessionID == "" {
		t.Fatalf("empty session id")
	}

	userID, err := svc.Validate(ctx, sessionID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("user id = %q, want user-1", userID)
	}

	// Sessions expire after the configured duration.
	clock.Advance(time.Hour + time.Second)
	if _, err := svc.Validate(ctx, sessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expired session validate err = %v, want ErrSessionNotFound", err)
	}
}

func TestValidate_UnknownSession(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	if _, err := svc.Validate(context.Background(), "no-such-session"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestDelete_RemovesSession(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	sessionID, err := svc.Create(ctx, "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := svc.Delete(ctx, sessionID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := svc.Validate(ctx, sessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("deleted session validate err = %v, want ErrSessionNotFound", err)
	}
}

func TestCleanup_SweepsOnlyExpired(t *testing.T) {
	t.Parallel()
	svc, clock := newTestService(t)
	ctx := context.Background()

	oldSession, err := svc.Create(ctx, "user-old")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	clock.Advance(30 * time.Minute)
	freshSession, err := svc.Create(ctx, "user-fresh")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	clock.Advance(45 * time.Minute) // old is now past its hour, fresh is not
	if err := svc.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, err := svc.Validate(ctx, oldSession); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("old session survived cleanup: %v", err)
	}
	if userID, err := svc.Validate(ctx, freshSession); err != nil || userID != "user-fresh" {
		t.Fatalf("fresh session swept: user=%q err=%v", userID, err)
	}
}

func TestLoadActor_Anonymous(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Empty session id and unknown session id both yield anonymous
	// actors carrying the provided token.
	for _, sessionID := range []string{"", "bogus"} {
		actor, err := svc.LoadActor(ctx, sessionID, "tok-1")
		if err != nil {
			t.Fatalf("load actor (%q): %v", sessionID, err)
		}
		if actor.SessionID != "" || actor.UserID != "" {
			t.Fatalf("actor not anonymous: %+v", actor)
		}
		if actor.ProvidedAuthorToken != "tok-1" {
			t.Fatalf("token dropped: %+v", actor)
		}
	}
}

func TestUnlockPersistence_RoundTrip(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	sessionID, err := svc.Create(ctx, "user-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	actor, err := svc.LoadActor(ctx, sessionID, "")
	if err != nil {
		t.Fatalf("load actor: %v", err)
	}

	if err := svc.PersistNoteUnlock(ctx, actor, "n1"); err != nil {
		t.Fatalf("persist note unlock: %v", err)
	}
	if err := svc.PersistShareUnlock(ctx, actor, "sh1"); err != nil {
		t.Fatalf("persist share unlock: %v", err)
	}
	// Re-persisting is a set-semantics no-op.
	if err := svc.PersistNoteUnlock(ctx, actor, "n1"); err != nil {
		t.Fatalf("re-persist note unlock: %v", err)
	}

	// A fresh actor for the same session sees the persisted unlocks.
	reloaded, err := svc.LoadActor(ctx, sessionID, "")
	if err != nil {
		t.Fatalf("reload actor: %v", err)
	}
	if ids := reloaded.UnlockedNoteIDs(); len(ids) != 1 || ids[0] != "n1" {
		t.Fatalf("note unlocks = %v, want [n1]", ids)
	}
	if ids := reloaded.UnlockedShareIDs(); len(ids) != 1 || ids[0] != "sh1" {
		t.Fatalf("share unlocks = %v, want [sh1]", ids)
	}
}

func TestPersistUnlock_SessionlessIsNoOp(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	actor := policy.NewActor("", "", "")
	if err := svc.PersistNoteUnlock(context.Background(), actor, "n1"); err != nil {
		t.Fatalf("sessionless persist: %v", err)
	}
}

func TestCookieRoundTrip(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SetCookie(rec, "sess-abc", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	sessionID, err := GetFromRequest(req)
	if err != nil {
		t.Fatalf("get from request: %v", err)
	}
	if sessionID != "sess-abc" {
		t.Fatalf("session id = %q, want sess-abc", sessionID)
	}

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := GetFromRequest(bare); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("missing cookie err = %v, want ErrSessionNotFound", err)
	}
}
