package policy

// Verdict is the closed set of access decisions for a read-path evaluation.
// Callers branch on the verdict to produce a response; none of these are
// errors.
type Verdict int

const (
	// Allow grants access to the full (hash-redacted) resource payload.
	Allow Verdict = iota

	// RequiresPassword means the resource is password-protected and the
	// actor has not unlocked it yet. The resource title may still be shown.
	RequiresPassword

	// Forbidden means the actor is not permitted to access the resource.
	Forbidden

	// Expired means the resource's expiry timestamp has passed.
	Expired

	// NotFound means no resource with the given id exists.
	NotFound
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case RequiresPassword:
		return "requires_password"
	case Forbidden:
		return "forbidden"
	case Expired:
		return "expired"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// UnlockOutcome is the result of an unlock attempt.
type UnlockOutcome int

const (
	Unlocked UnlockOutcome = iota
	WrongPassword
)

func (o UnlockOutcome) String() string {
	if o == Unlocked {
		return "unlocked"
	}
	return "wrong_password"
}
