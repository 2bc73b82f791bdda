package policy

import "sort"

// Actor is the per-request context for the requester being evaluated:
// anonymous visitor, session-authenticated user, or author-token holder.
// It is constructed from transport-layer session state on every request
// and never shared between requests; the unlock sets are loaded from, and
// flushed back to, the session store by the caller.
type Actor struct {
	// SessionID identifies the transport session, empty for actors with
	// no session (pure token holders, one-shot API callers).
	SessionID string

	// UserID is the session-authenticated user, empty when anonymous.
	UserID string

	// ProvidedAuthorToken is the bearer secret supplied with the request,
	// compared against a resource's author token for mutation rights.
	ProvidedAuthorToken string

	unlockedNotes  map[string]struct{}
	unlockedShares map[string]struct{}
}

// NewActor creates an actor with empty unlock sets.
func NewActor(sessionID, userID, providedAuthorToken string) *Actor {
	return &Actor{
		SessionID:           sessionID,
		UserID:              userID,
		ProvidedAuthorToken: providedAuthorToken,
		unlockedNotes:       make(map[string]struct{}),
		unlockedShares:      make(map[string]struct{}),
	}
}

// GrantNoteUnlock records that the actor has unlocked the given note.
// Inserting an already-present id is a no-op (set semantics).
func (a *Actor) GrantNoteUnlock(noteID string) {
	if a.unlockedNotes == nil {
		a.unlockedNotes = make(map[string]struct{})
	}
	a.unlockedNotes[noteID] = struct{}{}
}

// GrantShareUnlock records that the actor has unlocked the given share.
func (a *Actor) GrantShareUnlock(shareID string) {
	if a.unlockedShares == nil {
		a.unlockedShares = make(map[string]struct{})
	}
	a.unlockedShares[shareID] = struct{}{}
}

// HasUnlockedNote reports whether the note id is in the actor's unlock set.
func (a *Actor) HasUnlockedNote(noteID string) bool {
	_, ok := a.unlockedNotes[noteID]
	return ok
}

// HasUnlockedShare reports whether the share id is in the actor's unlock set.
func (a *Actor) HasUnlockedShare(shareID string) bool {
	_, ok := a.unlockedShares[shareID]
	return ok
}

// UnlockedNoteIDs returns the unlocked note ids in sorted order.
func (a *Actor) UnlockedNoteIDs() []string {
	return sortedKeys(a.unlockedNotes)
}

// UnlockedShareIDs returns the unlocked share ids in sorted order.
func (a *Actor) UnlockedShareIDs() []string {
	return sortedKeys(a.unlockedShares)
}

func sortedKeys(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
