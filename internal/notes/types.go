package notes

import (
	"time"

	"github.com/quickmark-app/quickmark/internal/policy"
)

const (
	// DefaultLimit is the default number of notes to return in a list
	DefaultLimit = 50

	// MaxLimit is the maximum number of notes to return in a list
	MaxLimit = 1000
)

// Note is the full note record as held by the service. PasswordHash and
// AuthorToken never leave the service; callers get NoteView.
type Note struct {
	ID           string
	OwnerUserID  string
	Title        string
	Content      string
	Metadata     map[string]string
	Visibility   policy.Visibility
	PasswordHash string
	AuthorToken  string
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NoteView is a note payload safe to hand to callers: the stored password
// hash and author token are redacted unconditionally. A locked view (for
// RequiresPassword verdicts) exposes the title but withholds content and
// metadata.
type NoteView struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Content    string            `json:"content,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Visibility policy.Visibility `json:"visibility"`
	Locked     bool              `json:"locked,omitempty"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// CreateNoteParams contains parameters for creating a note.
type CreateNoteParams struct {
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Visibility policy.Visibility `json:"visibility"`
	Password   string            `json:"password,omitempty"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
}

// CreateNoteResult is the response for note creation. AuthorToken is set
// exactly once, for anonymous creators, and is never retrievable again.
type CreateNoteResult struct {
	Note        NoteView `json:"note"`
	AuthorToken string   `json:"author_token,omitempty"`
}

// UpdateNoteParams contains parameters for updating a note. Pointer
// fields distinguish "leave unchanged" from explicit values.
type UpdateNoteParams struct {
	Title       *string            `json:"title,omitempty"`
	Content     *string            `json:"content,omitempty"`
	Metadata    *map[string]string `json:"metadata,omitempty"`
	Visibility  *policy.Visibility `json:"visibility,omitempty"`
	Password    *string            `json:"password,omitempty"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
	ClearExpiry bool               `json:"clear_expiry,omitempty"`
}

// NoteListResult represents a paginated list of the caller's own notes.
type NoteListResult struct {
	Notes      []NoteView `json:"notes"`
	TotalCount int        `json:"total_count"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}
