// Package notes implements note CRUD on top of the record store, with
// every read gated by the visibility policy and every mutation gated by
// the ownership resolver.
package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quickmark-app/quickmark/internal/errs"
	"github.com/quickmark-app/quickmark/internal/hash"
	"github.com/quickmark-app/quickmark/internal/policy"
	"github.com/quickmark-app/quickmark/internal/session"
	"github.com/quickmark-app/quickmark/internal/store"
)

// Service handles note operations.
type Service struct {
	store    *store.Store
	policy   *policy.VisibilityPolicy
	hasher   hash.Hasher
	sessions *session.Service
	clock    policy.Clock
}

// NewService creates a notes service.
func NewService(st *store.Store, pol *policy.VisibilityPolicy, hasher hash.Hasher, sessions *session.Service, clock policy.Clock) *Service {
	if clock == nil {
		clock = policy.SystemClock()
	}
	return &Service{store: st, policy: pol, hasher: hasher, sessions: sessions, clock: clock}
}

// Create creates a new note. A session-authenticated actor becomes the
// owner; an anonymous actor gets a freshly generated author token bound
// to the note and returned exactly once.
func (s *Service) Create(ctx context.Context, actor *policy.Actor, params CreateNoteParams) (*CreateNoteResult, error) {
	if params.Title == "" {
		return nil, errs.New(errs.InvalidArgument, "title is required")
	}
	if !params.Visibility.Valid() {
		return nil, errs.New(errs.InvalidArgument, "unknown visibility")
	}
	if params.Visibility.IsPassword() && params.Password == "" {
		return nil, errs.New(errs.InvalidArgument, "password visibility requires a password")
	}
	if !params.Visibility.IsPassword() && params.Password != "" {
		return nil, errs.New(errs.InvalidArgument, "password only applies to password visibility")
	}

	passwordHash := ""
	if params.Password != "" {
		var err error
		passwordHash, err = s.hasher.Hash(params.Password)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "hash password", err)
		}
	}

	ownerUserID := ""
	authorToken := ""
	if actor != nil && actor.UserID != "" {
		ownerUserID = actor.UserID
	} else {
		authorToken = uuid.New().String()
	}

	metadata, err := encodeMetadata(params.Metadata)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid metadata", err)
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	rec := store.NoteRecord{
		ID:           uuid.New().String(),
		OwnerUserID:  ownerUserID,
		Title:        params.Title,
		Content:      params.Content,
		Metadata:     metadata,
		Visibility:   int64(params.Visibility),
		PasswordHash: passwordHash,
		AuthorToken:  authorToken,
		ExpiresAt:    params.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateNote(ctx, rec); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "create note", err)
	}

	return &CreateNoteResult{
		Note:        viewOf(rec, false),
		AuthorToken: authorToken,
	}, nil
}

// Get evaluates the visibility policy for a note and, on Allow, returns
// the full redacted view. On RequiresPassword the view carries the title
// only, with Locked set. All other verdicts return a nil view.
func (s *Service) Get(ctx context.Context, actor *policy.Actor, id string) (policy.Verdict, *NoteView, error) {
	rec, err := s.store.GetNote(ctx, id)
	if err != nil {
		return policy.NotFound, nil, errs.Wrap(errs.Unavailable, "read note", err)
	}

	verdict := s.policy.EvaluateNote(snapshotOf(rec), actor)
	switch verdict {
	case policy.Allow:
		v := viewOf(*rec, false)
		return verdict, &v, nil
	case policy.RequiresPassword:
		v := viewOf(*rec, true)
		return verdict, &v, nil
	default:
		return verdict, nil, nil
	}
}

// Unlock attempts to unlock a password-protected note for the actor.
// Missing and expired notes short-circuit with the corresponding verdict:
// expiry takes precedence over unlock state, so unlocking an expired note
// is pointless and refused. On a verified password the unlock is recorded
// in the actor's set and persisted to the session ledger.
func (s *Service) Unlock(ctx context.Context, actor *policy.Actor, id, password string) (policy.Verdict, policy.UnlockOutcome, error) {
	rec, err := s.store.GetNote(ctx, id)
	if err != nil {
		return policy.NotFound, policy.WrongPassword, errs.Wrap(errs.Unavailable, "read note", err)
	}
	if rec == nil {
		return policy.NotFound, policy.WrongPassword, nil
	}
	snap := snapshotOf(rec)
	if s.policy.EvaluateNote(snap, actor) == policy.Expired {
		return policy.Expired, policy.WrongPassword, nil
	}

	outcome := s.policy.UnlockNote(snap, actor, password)
	if outcome == policy.Unlocked && rec.PasswordHash != "" {
		if err := s.sessions.PersistNoteUnlock(ctx, actor, id); err != nil {
			return policy.Allow, outcome, errs.Wrap(errs.Unavailable, "persist unlock", err)
		}
	}
	return policy.Allow, outcome, nil
}

// Update applies partial changes to a note after ownership authorization.
// The password-hash invariant is maintained here: moving to password
// visibility requires a password unless a hash is already stored; moving
// away from it clears the stored hash.
func (s *Service) Update(ctx context.Context, actor *policy.Actor, id string, params UpdateNoteParams) (policy.Verdict, *NoteView, error) {
	rec, err := s.store.GetNote(ctx, id)
	if err != nil {
		return policy.NotFound, nil, errs.Wrap(errs.Unavailable, "read note", err)
	}
	if rec == nil {
		return policy.NotFound, nil, nil
	}

	if v := s.policy.Authorize(ownershipOf(rec), actor, policy.OpUpdate); v != policy.Allow {
		return v, nil, nil
	}

	updated := *rec
	if params.Title != nil {
		if *params.Title == "" {
			return policy.Allow, nil, errs.New(errs.InvalidArgument, "title cannot be empty")
		}
		updated.Title = *params.Title
	}
	if params.Content != nil {
		updated.Content = *params.Content
	}
	if params.Metadata != nil {
		metadata, err := encodeMetadata(*params.Metadata)
		if err != nil {
			return policy.Allow, nil, errs.Wrap(errs.InvalidArgument, "invalid metadata", err)
		}
		updated.Metadata = metadata
	}
	if params.ExpiresAt != nil {
		updated.ExpiresAt = params.ExpiresAt
	}
	if params.ClearExpiry {
		updated.ExpiresAt = nil
	}

	if params.Visibility != nil {
		if !params.Visibility.Valid() {
			return policy.Allow, nil, errs.New(errs.InvalidArgument, "unknown visibility")
		}
		updated.Visibility = int64(*params.Visibility)
	}
	vis := policy.Visibility(updated.Visibility)

	if params.Password != nil {
		if !vis.IsPassword() {
			return policy.Allow, nil, errs.New(errs.InvalidArgument, "password only applies to password visibility")
		}
		hashed, err := s.hasher.Hash(*params.Password)
		if err != nil {
			return policy.Allow, nil, errs.Wrap(errs.Internal, "hash password", err)
		}
		updated.PasswordHash = hashed
	}

	if vis.IsPassword() {
		if updated.PasswordHash == "" {
			return policy.Allow, nil, errs.New(errs.InvalidArgument, "password visibility requires a password")
		}
	} else {
		updated.PasswordHash = ""
	}

	updated.UpdatedAt = s.clock.Now().UTC().Truncate(time.Second)
	if err := s.store.UpdateNote(ctx, updated); err != nil {
		return policy.Allow, nil, errs.Wrap(errs.Unavailable, "update note", err)
	}

	v := viewOf(updated, false)
	return policy.Allow, &v, nil
}

// Delete removes a note after ownership authorization. Dependent shares
// are removed by the storage layer's cascade constraint.
func (s *Service) Delete(ctx context.Context, actor *policy.Actor, id string) (policy.Verdict, error) {
	rec, err := s.store.GetNote(ctx, id)
	if err != nil {
		return policy.NotFound, errs.Wrap(errs.Unavailable, "read note", err)
	}
	if rec == nil {
		return policy.NotFound, nil
	}

	if v := s.policy.Authorize(ownershipOf(rec), actor, policy.OpDelete); v != policy.Allow {
		return v, nil
	}

	if err := s.store.DeleteNote(ctx, id); err != nil {
		return policy.Allow, errs.Wrap(errs.Unavailable, "delete note", err)
	}
	return policy.Allow, nil
}

// List returns a page of the session user's own notes. Anonymous actors
// own nothing and get an empty page.
func (s *Service) List(ctx context.Context, actor *policy.Actor, limit, offset int) (*NoteListResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	if actor == nil || actor.UserID == "" {
		return &NoteListResult{Notes: []NoteView{}, Limit: limit, Offset: offset}, nil
	}

	totalCount, err := s.store.CountNotesByOwner(ctx, actor.UserID)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "count notes", err)
	}
	recs, err := s.store.ListNotesByOwner(ctx, actor.UserID, limit, offset)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list notes", err)
	}

	views := make([]NoteView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, viewOf(rec, false))
	}
	return &NoteListResult{
		Notes:      views,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// snapshotOf maps a record to its policy-relevant slice. A nil record
// maps to a nil snapshot (NotFound).
func snapshotOf(rec *store.NoteRecord) *policy.NoteSnapshot {
	if rec == nil {
		return nil
	}
	return &policy.NoteSnapshot{
		ID:           rec.ID,
		OwnerUserID:  rec.OwnerUserID,
		Visibility:   policy.Visibility(rec.Visibility),
		PasswordHash: rec.PasswordHash,
		ExpiresAt:    rec.ExpiresAt,
	}
}

func ownershipOf(rec *store.NoteRecord) policy.Ownership {
	return policy.Ownership{
		AuthorToken: rec.AuthorToken,
		OwnerUserID: rec.OwnerUserID,
	}
}

// viewOf builds the caller-facing payload. The stored password hash and
// author token are never included. Locked views keep the title visible
// but withhold content and metadata.
func viewOf(rec store.NoteRecord, locked bool) NoteView {
	v := NoteView{
		ID:         rec.ID,
		Title:      rec.Title,
		Visibility: policy.Visibility(rec.Visibility),
		Locked:     locked,
		ExpiresAt:  rec.ExpiresAt,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
	if !locked {
		v.Content = rec.Content
		v.Metadata = decodeMetadata(rec.Metadata)
	}
	return v
}

func encodeMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(text string) map[string]string {
	if text == "" || text == "{}" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil
	}
	return m
}
