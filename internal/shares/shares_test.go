package shares

import (
	"context"
	"testing"
	"time"

	"github.com/quickmark-app/quickmark/internal/errs"
	"github.com/quickmark-app/quickmark/internal/hash"
	"github.com/quickmark-app/quickmark/internal/policy"
	"github.com/quickmark-app/quickmark/internal/session"
	"github.com/quickmark-app/quickmark/internal/store"
	"github.com/quickmark-app/quickmark/internal/testdb"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	sessions *session.Service
	store    *store.Store
	clock    *policy.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := policy.NewFakeClock(testTime)
	st := testdb.NewStoreInMemory(t)
	t.Cleanup(func() { st.Close() })

	hasher := hash.FakeInsecureHasher{}
	pol := policy.New(clock, hasher, policy.OwnershipResolver{AllowOwnerless: true})
	sessions := session.NewService(st, clock, time.Hour)
	return &fixture{
		svc:      NewService(st, pol, hasher, sessions, clock),
		sessions: sessions,
		store:    st,
		clock:    clock,
	}
}

func (f *fixture) createNote(t *testing.T, id, title, content string) {
	t.Helper()
	err := f.store.CreateNote(context.Background(), store.NoteRecord{
		ID:         id,
		Title:      title,
		Content:    content,
		Metadata:   "{}",
		Visibility: int64(policy.VisibilityPublic),
		CreatedAt:  testTime,
		UpdatedAt:  testTime,
	})
	if err != nil {
		t.Fatalf("create note %s: %v", id, err)
	}
}

func (f *fixture) sessionActor(t *testing.T) *policy.Actor {
	t.Helper()
	sessionID, err := f.sessions.Create(context.Background(), "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	actor, err := f.sessions.LoadActor(context.Background(), sessionID, "")
	if err != nil {
		t.Fatalf("load actor: %v", err)
	}
	return actor
}

func anonymous() *policy.Actor { return policy.NewActor("", "", "") }

func strptr(s string) *string { return &s }

func TestCreate_RequiresExistingNote(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), "ghost", CreateShareParams{})
	if errs.CodeOf(err) != errs.NotFound {
		t.Fatalf("err = %v, want NotFound", err)
	}
	_, err = f.svc.Create(context.Background(), "", CreateShareParams{})
	if errs.CodeOf(err) != errs.InvalidArgument {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestCreateAndView_OpenShare(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.createNote(t, "n1", "title", "content")

	view, err := f.svc.Create(ctx, "n1", CreateShareParams{})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
	if len(view.ShareCode) != ShareCodeLength {
		t.Fatalf("share code %q has wrong length", view.ShareCode)
	}
	if view.Protected || view.Views != 0 {
		t.Fatalf("unexpected new share view: %+v", view)
	}

	// Each view attaches the note payload and bumps the counter.
	for want := int64(1); want <= 3; want++ {
		verdict, got, err := f.svc.View(ctx, anonymous(), view.ShareCode)
		if err != nil {
			t.Fatalf("view: %v", err)
		}
		if verdict != policy.Allow {
			t.Fatalf("verdict = %v, want Allow", verdict)
		}
		if got.NoteTitle != "title" || got.NoteContent != "content" {
			t.Fatalf("note payload missing: %+v", got)
		}
		if got.Views != want {
			t.Fatalf("views = %d, want %d", got.Views, want)
		}
	}
}

func TestView_UnknownCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	verdict, view, err := f.svc.View(context.Background(), anonymous(), "nope")
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if verdict != policy.NotFound || view != nil {
		t.Fatalf("verdict=%v view=%v, want NotFound/nil", verdict, view)
	}
}

func TestProtectedShare_LockUnlockFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.createNote(t, "n1", "report", "numbers")

	view, err := f.svc.Create(ctx, "n1", CreateShareParams{Password: "pw"})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
	code := view.ShareCode
	actor := f.sessionActor(t)

	// Locked view: title only, no content, no view counted.
	verdict, got, err := f.svc.View(ctx, actor, code)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if verdict != policy.RequiresPassword {
		t.Fatalf("verdict = %v, want RequiresPassword", verdict)
	}
	if !got.Locked || got.NoteTitle != "report" || got.NoteContent != "" {
		t.Fatalf("locked view wrong: %+v", got)
	}
	if got.Views != 0 {
		t.Fatalf("locked view counted: %d", got.Views)
	}

	verdict, outcome, err := f.svc.Unlock(ctx, actor, code, "wrong")
	if err != nil || verdict != policy.Allow || outcome != policy.WrongPassword {
		t.Fatalf("wrong password: verdict=%v outcome=%v err=%v", verdict, outcome, err)
	}
	verdict, outcome, err = f.svc.Unlock(ctx, actor, code, "pw")
	if err != nil || verdict != policy.Allow || outcome != policy.Unlocked {
		t.Fatalf("unlock: verdict=%v outcome=%v err=%v", verdict, outcome, err)
	}

	verdict, got, err = f.svc.View(ctx, actor, code)
	if err != nil || verdict != policy.Allow {
		t.Fatalf("post-unlock view: verdict=%v err=%v", verdict, err)
	}
	if got.NoteContent != "numbers" || got.Views != 1 {
		t.Fatalf("post-unlock view wrong: %+v", got)
	}

	// The unlock persisted: a reloaded actor for the same session is
	// still unlocked.
	reloaded, err := f.sessions.LoadActor(ctx, actor.SessionID, "")
	if err != nil {
		t.Fatalf("reload actor: %v", err)
	}
	verdict, _, err = f.svc.View(ctx, reloaded, code)
	if err != nil || verdict != policy.Allow {
		t.Fatalf("reloaded view: verdict=%v err=%v", verdict, err)
	}
}

func TestExpiredShare(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.createNote(t, "n1", "t", "c")

	expires := testTime.Add(time.Hour)
	view, err := f.svc.Create(ctx, "n1", CreateShareParams{Password: "pw", ExpiresAt: &expires})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
	code := view.ShareCode

	f.clock.Advance(2 * time.Hour)

	// Expiry wins over the password gate.
	verdict, got, err := f.svc.View(ctx, anonymous(), code)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if verdict != policy.Expired || got != nil {
		t.Fatalf("expired view: verdict=%v view=%v", verdict, got)
	}
	verdict, _, err = f.svc.Unlock(ctx, anonymous(), code, "pw")
	if err != nil || verdict != policy.Expired {
		t.Fatalf("expired unlock: verdict=%v err=%v", verdict, err)
	}

	// Counter untouched by refused views.
	rec, err := f.store.GetShareByCode(ctx, code)
	if err != nil || rec == nil {
		t.Fatalf("get share: %v", err)
	}
	if rec.Views != 0 {
		t.Fatalf("views = %d, want 0", rec.Views)
	}
}

func TestUpdate_PasswordAndExpiry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.createNote(t, "n1", "t", "c")

	view, err := f.svc.Create(ctx, "n1", CreateShareParams{})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}

	// Add a password.
	updated, err := f.svc.Update(ctx, view.ID, UpdateShareParams{Password: strptr("pw")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Protected {
		t.Fatalf("share not protected after password set")
	}
	verdict, _, err := f.svc.View(ctx, anonymous(), view.ShareCode)
	if err != nil || verdict != policy.RequiresPassword {
		t.Fatalf("view after protect: verdict=%v err=%v", verdict, err)
	}

	// An explicit empty password removes protection.
	updated, err = f.svc.Update(ctx, view.ID, UpdateShareParams{Password: strptr("")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Protected {
		t.Fatalf("share still protected after password cleared")
	}

	expires := testTime.Add(time.Hour)
	updated, err = f.svc.Update(ctx, view.ID, UpdateShareParams{ExpiresAt: &expires})
	if err != nil || updated.ExpiresAt == nil {
		t.Fatalf("set expiry: %+v err=%v", updated, err)
	}
	updated, err = f.svc.Update(ctx, view.ID, UpdateShareParams{ClearExpiry: true})
	if err != nil || updated.ExpiresAt != nil {
		t.Fatalf("clear expiry: %+v err=%v", updated, err)
	}

	if _, err := f.svc.Update(ctx, "ghost", UpdateShareParams{}); errs.CodeOf(err) != errs.NotFound {
		t.Fatalf("update missing share err = %v, want NotFound", err)
	}
}

func TestDeleteAndList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.createNote(t, "n1", "t", "c")

	first, err := f.svc.Create(ctx, "n1", CreateShareParams{})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
	second, err := f.svc.Create(ctx, "n1", CreateShareParams{})
	if err != nil {
		t.Fatalf("create share: %v", err)
	}
	if first.ShareCode == second.ShareCode {
		t.Fatalf("two shares got the same code")
	}

	views, err := f.svc.ListByNote(ctx, "n1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("listed %d shares, want 2", len(views))
	}

	if err := f.svc.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.svc.Delete(ctx, first.ID); errs.CodeOf(err) != errs.NotFound {
		t.Fatalf("re-delete err = %v, want NotFound", err)
	}

	views, err = f.svc.ListByNote(ctx, "n1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 || views[0].ID != second.ID {
		t.Fatalf("list after delete: %+v", views)
	}
}
