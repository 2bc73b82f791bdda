// Package shares implements password-protected, expiring share links for
// notes. Shares have no private/ownership visibility tier: a share is
// either expired, locked behind its password, or viewable by anyone with
// the code.
//
// Share mutation carries no authorization gate: ownership attaches to
// notes, not to their share links. Callers needing stricter control
// should delete the note, which cascades to its shares.
package shares

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quickmark-app/quickmark/internal/errs"
	"github.com/quickmark-app/quickmark/internal/hash"
	"github.com/quickmark-app/quickmark/internal/policy"
	"github.com/quickmark-app/quickmark/internal/session"
	"github.com/quickmark-app/quickmark/internal/store"
)

// ShareView is a share payload safe to hand to callers; the stored
// password hash is redacted unconditionally. A locked view withholds the
// note payload.
type ShareView struct {
	ID        string     `json:"id"`
	NoteID    string     `json:"note_id"`
	ShareCode string     `json:"share_code"`
	Protected bool       `json:"protected"`
	Locked    bool       `json:"locked,omitempty"`
	Views     int64      `json:"views"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`

	// NoteTitle and NoteContent carry the shared note's payload on the
	// content-view path. A locked view keeps the title.
	NoteTitle   string `json:"note_title,omitempty"`
	NoteContent string `json:"note_content,omitempty"`
}

// CreateShareParams contains parameters for creating a share link.
type CreateShareParams struct {
	Password  string     `json:"password,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// UpdateShareParams contains parameters for updating a share link.
type UpdateShareParams struct {
	Password    *string    `json:"password,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
}

// Service handles share link operations.
type Service struct {
	store    *store.Store
	policy   *policy.VisibilityPolicy
	hasher   hash.Hasher
	sessions *session.Service
	clock    policy.Clock
}

// NewService creates a shares service.
func NewService(st *store.Store, pol *policy.VisibilityPolicy, hasher hash.Hasher, sessions *session.Service, clock policy.Clock) *Service {
	if clock == nil {
		clock = policy.SystemClock()
	}
	return &Service{store: st, policy: pol, hasher: hasher, sessions: sessions, clock: clock}
}

// Create creates a share link for a note. The share code is regenerated
// on the rare uniqueness collision.
func (s *Service) Create(ctx context.Context, noteID string, params CreateShareParams) (*ShareView, error) {
	if noteID == "" {
		return nil, errs.New(errs.InvalidArgument, "note ID is required")
	}

	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "read note", err)
	}
	if note == nil {
		return nil, errs.New(errs.NotFound, "note not found")
	}

	passwordHash := ""
	if params.Password != "" {
		passwordHash, err = s.hasher.Hash(params.Password)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "hash password", err)
		}
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	rec := store.ShareRecord{
		ID:           uuid.New().String(),
		NoteID:       noteID,
		PasswordHash: passwordHash,
		ExpiresAt:    params.ExpiresAt,
		CreatedAt:    now,
	}

	for attempt := 0; ; attempt++ {
		code, err := GenerateShareCode()
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "generate share code", err)
		}
		rec.ShareCode = code

		err = s.store.CreateShare(ctx, rec)
		if err == nil {
			break
		}
		if attempt < MaxCollisionRetries && isUniqueViolation(err) {
			continue
		}
		return nil, errs.Wrap(errs.Unavailable, "create share", err)
	}

	v := viewOf(rec, false)
	return &v, nil
}

// View resolves a share by code and evaluates the visibility policy. On
// Allow the shared note's payload is attached and the view counter is
// bumped atomically at the storage layer. Repeated views increment
// repeatedly; there is no per-viewer dedup.
func (s *Service) View(ctx context.Context, actor *policy.Actor, code string) (policy.Verdict, *ShareView, error) {
	rec, err := s.store.GetShareByCode(ctx, code)
	if err != nil {
		return policy.NotFound, nil, errs.Wrap(errs.Unavailable, "read share", err)
	}

	verdict := s.policy.EvaluateShare(snapshotOf(rec), actor)
	switch verdict {
	case policy.Allow:
		if err := s.store.IncrementShareViews(ctx, rec.ID); err != nil {
			return verdict, nil, errs.Wrap(errs.Unavailable, "count view", err)
		}
		rec.Views++

		v := viewOf(*rec, false)
		note, err := s.store.GetNote(ctx, rec.NoteID)
		if err != nil {
			return verdict, nil, errs.Wrap(errs.Unavailable, "read shared note", err)
		}
		if note != nil {
			v.NoteTitle = note.Title
			v.NoteContent = note.Content
		}
		return verdict, &v, nil

	case policy.RequiresPassword:
		v := viewOf(*rec, true)
		if note, err := s.store.GetNote(ctx, rec.NoteID); err == nil && note != nil {
			v.NoteTitle = note.Title
		}
		return verdict, &v, nil

	default:
		return verdict, nil, nil
	}
}

// Unlock attempts to unlock a password-protected share for the actor.
func (s *Service) Unlock(ctx context.Context, actor *policy.Actor, code, password string) (policy.Verdict, policy.UnlockOutcome, error) {
	rec, err := s.store.GetShareByCode(ctx, code)
	if err != nil {
		return policy.NotFound, policy.WrongPassword, errs.Wrap(errs.Unavailable, "read share", err)
	}
	if rec == nil {
		return policy.NotFound, policy.WrongPassword, nil
	}
	snap := snapshotOf(rec)
	if s.policy.EvaluateShare(snap, actor) == policy.Expired {
		return policy.Expired, policy.WrongPassword, nil
	}

	outcome := s.policy.UnlockShare(snap, actor, password)
	if outcome == policy.Unlocked && rec.PasswordHash != "" {
		if err := s.sessions.PersistShareUnlock(ctx, actor, rec.ID); err != nil {
			return policy.Allow, outcome, errs.Wrap(errs.Unavailable, "persist unlock", err)
		}
	}
	return policy.Allow, outcome, nil
}

// Update changes a share's password or expiry.
func (s *Service) Update(ctx context.Context, id string, params UpdateShareParams) (*ShareView, error) {
	rec, err := s.store.GetShare(ctx, id)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "read share", err)
	}
	if rec == nil {
		return nil, errs.New(errs.NotFound, "share not found")
	}

	if params.Password != nil {
		if *params.Password == "" {
			rec.PasswordHash = ""
		} else {
			hashed, err := s.hasher.Hash(*params.Password)
			if err != nil {
				return nil, errs.Wrap(errs.Internal, "hash password", err)
			}
			rec.PasswordHash = hashed
		}
	}
	if params.ExpiresAt != nil {
		rec.ExpiresAt = params.ExpiresAt
	}
	if params.ClearExpiry {
		rec.ExpiresAt = nil
	}

	if err := s.store.UpdateShare(ctx, *rec); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "update share", err)
	}

	v := viewOf(*rec, false)
	return &v, nil
}

// Delete removes a share link.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.store.GetShare(ctx, id)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "read share", err)
	}
	if rec == nil {
		return errs.New(errs.NotFound, "share not found")
	}
	if err := s.store.DeleteShare(ctx, id); err != nil {
		return errs.Wrap(errs.Unavailable, "delete share", err)
	}
	return nil
}

// ListByNote returns all shares referencing a note.
func (s *Service) ListByNote(ctx context.Context, noteID string) ([]ShareView, error) {
	recs, err := s.store.ListSharesByNote(ctx, noteID)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list shares", err)
	}
	views := make([]ShareView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, viewOf(rec, false))
	}
	return views, nil
}

func snapshotOf(rec *store.ShareRecord) *policy.ShareSnapshot {
	if rec == nil {
		return nil
	}
	return &policy.ShareSnapshot{
		ID:           rec.ID,
		PasswordHash: rec.PasswordHash,
		ExpiresAt:    rec.ExpiresAt,
	}
}

func viewOf(rec store.ShareRecord, locked bool) ShareView {
	return ShareView{
		ID:        rec.ID,
		NoteID:    rec.NoteID,
		ShareCode: rec.ShareCode,
		Protected: rec.PasswordHash != "",
		Locked:    locked,
		Views:     rec.Views,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
