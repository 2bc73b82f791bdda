package policy

import (
	"encoding/json"
	"fmt"
)

// Visibility represents the visibility level of a note.
// Stored as INTEGER in the DB (visibility column): 0=private, 1=public, 2=password.
type Visibility int

const (
	VisibilityPrivate  Visibility = 0
	VisibilityPublic   Visibility = 1
	VisibilityPassword Visibility = 2
)

// IsPassword returns true if access is gated by a password.
func (v Visibility) IsPassword() bool {
	return v == VisibilityPassword
}

// Valid reports whether v is a known visibility level.
func (v Visibility) Valid() bool {
	return v >= VisibilityPrivate && v <= VisibilityPassword
}

func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityPublic:
		return "public"
	case VisibilityPassword:
		return "password"
	default:
		return fmt.Sprintf("visibility(%d)", int(v))
	}
}

// ParseVisibility parses a visibility name as used in API payloads.
func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "private":
		return VisibilityPrivate, nil
	case "public":
		return VisibilityPublic, nil
	case "password":
		return VisibilityPassword, nil
	default:
		return 0, fmt.Errorf("unknown visibility %q", s)
	}
}

// MarshalJSON encodes the visibility as its string name.
func (v Visibility) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON decodes a visibility from its string name.
func (v *Visibility) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseVisibility(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
