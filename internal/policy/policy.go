// Package policy implements the access-control core consulted by every
// note and share read/write path: visibility resolution, password unlock
// state, ownership/token authorization, and expiry enforcement.
//
// Evaluation is a pure function over a snapshot of resource state and a
// per-request Actor; the only mutations are the explicit unlock-set
// insertions performed by the Unlock* methods.
package policy

import (
	"time"

	"github.com/quickmark-app/quickmark/internal/hash"
)

// NoteSnapshot is the policy-relevant slice of a note record.
type NoteSnapshot struct {
	ID           string
	OwnerUserID  string
	Visibility   Visibility
	PasswordHash string
	ExpiresAt    *time.Time
}

// ShareSnapshot is the policy-relevant slice of a share record. Shares
// have no private/ownership visibility tier; only expiry and password
// apply.
type ShareSnapshot struct {
	ID           string
	PasswordHash string
	ExpiresAt    *time.Time
}

// VisibilityPolicy evaluates access verdicts for notes and shares.
type VisibilityPolicy struct {
	clock    Clock
	hasher   hash.Hasher
	resolver OwnershipResolver
}

// New creates a VisibilityPolicy with the given collaborators.
func New(clock Clock, hasher hash.Hasher, resolver OwnershipResolver) *VisibilityPolicy {
	if clock == nil {
		clock = SystemClock()
	}
	return &VisibilityPolicy{clock: clock, hasher: hasher, resolver: resolver}
}

// Resolver returns the ownership resolver used for mutation decisions.
func (p *VisibilityPolicy) Resolver() OwnershipResolver {
	return p.resolver
}

// expired reports whether the expiry timestamp is set and strictly in the
// past relative to the injected clock.
func (p *VisibilityPolicy) expired(expiresAt *time.Time) bool {
	return expiresAt != nil && expiresAt.Before(p.clock.Now())
}

// EvaluateNote returns the access verdict for a note. A nil snapshot
// means no record exists. Expiry is checked before ownership and
// password gates, so an expired note is Expired for everyone, owner
// included.
func (p *VisibilityPolicy) EvaluateNote(n *NoteSnapshot, actor *Actor) Verdict {
	if n == nil {
		return NotFound
	}
	if p.expired(n.ExpiresAt) {
		return Expired
	}

	switch {
	case n.Visibility == VisibilityPrivate:
		if actor != nil && actor.UserID != "" && actor.UserID == n.OwnerUserID {
			return Allow
		}
		return Forbidden

	case n.Visibility == VisibilityPassword && n.PasswordHash != "":
		if actor != nil && actor.HasUnlockedNote(n.ID) {
			return Allow
		}
		return RequiresPassword

	default:
		// Public, or password visibility with no hash ever stored. The
		// latter should be unreachable given the create/update invariant;
		// if it happens anyway, a password that was never set cannot be
		// required.
		return Allow
	}
}

// EvaluateShare returns the access verdict for a share. A nil snapshot
// means no record exists.
func (p *VisibilityPolicy) EvaluateShare(s *ShareSnapshot, actor *Actor) Verdict {
	if s == nil {
		return NotFound
	}
	if p.expired(s.ExpiresAt) {
		return Expired
	}
	if s.PasswordHash != "" {
		if actor != nil && actor.HasUnlockedShare(s.ID) {
			return Allow
		}
		return RequiresPassword
	}
	return Allow
}

// UnlockNote attempts to unlock a password-protected note for the actor.
// When the note has no stored hash the unlock trivially succeeds, since
// no password was ever required. On a verified password the note id is added
// to the actor's unlock set; re-unlocking an already-unlocked note is a
// set-semantics no-op that still reports Unlocked.
func (p *VisibilityPolicy) UnlockNote(n *NoteSnapshot, actor *Actor, password string) UnlockOutcome {
	if n.PasswordHash == "" {
		return Unlocked
	}
	if !p.hasher.Verify(password, n.PasswordHash) {
		return WrongPassword
	}
	actor.GrantNoteUnlock(n.ID)
	return Unlocked
}

// UnlockShare attempts to unlock a password-protected share for the actor.
func (p *VisibilityPolicy) UnlockShare(s *ShareSnapshot, actor *Actor, password string) UnlockOutcome {
	if s.PasswordHash == "" {
		return Unlocked
	}
	if !p.hasher.Verify(password, s.PasswordHash) {
		return WrongPassword
	}
	actor.GrantShareUnlock(s.ID)
	return Unlocked
}

// Authorize decides whether the actor may perform a mutating operation on
// a resource with the given ownership fields.
func (p *VisibilityPolicy) Authorize(res Ownership, actor *Actor, op Operation) Verdict {
	return p.resolver.Authorize(res, actor, op)
}
