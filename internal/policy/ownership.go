package policy

// Operation is a mutating operation gated by ownership resolution.
type Operation int

const (
	OpUpdate Operation = iota
	OpDelete
)

func (op Operation) String() string {
	if op == OpDelete {
		return "delete"
	}
	return "update"
}

// Ownership is the authorization-relevant slice of a resource: who owns
// it (session user) and which bearer secret, if any, was bound to it at
// creation time. Empty strings mean unset.
type Ownership struct {
	AuthorToken string
	OwnerUserID string
}

// OwnershipResolver decides whether an actor may mutate or delete a
// resource. Checks run in strict priority order; the first applicable
// rule wins:
//
//  1. Resource has an author token: the actor's provided token must match
//     exactly. A mismatch is Forbidden even when the actor's session also
//     matches the owner; token auth supersedes session auth.
//  2. Resource has an owner: the actor's session user must match.
//  3. No token, no owner: allowed for anyone when AllowOwnerless is set.
type OwnershipResolver struct {
	// AllowOwnerless controls the fallback for resources that carry
	// neither an author token nor an owner. The historical behavior is
	// permissive (anonymous content stays mutable by anyone); setting
	// this false turns the fallback into Forbidden.
	AllowOwnerless bool
}

// Authorize returns Allow or Forbidden. The operation does not affect the
// outcome; update and delete share one rule set.
func (r OwnershipResolver) Authorize(res Ownership, actor *Actor, op Operation) Verdict {
	_ = op

	if res.AuthorToken != "" {
		if actor != nil && actor.ProvidedAuthorToken != "" && actor.ProvidedAuthorToken == res.AuthorToken {
			return Allow
		}
		return Forbidden
	}

	if res.OwnerUserID != "" {
		if actor != nil && actor.UserID != "" && actor.UserID == res.OwnerUserID {
			return Allow
		}
		return Forbidden
	}

	if r.AllowOwnerless {
		return Allow
	}
	return Forbidden
}
