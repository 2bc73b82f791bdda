// Package session manages transport sessions and the per-session unlock
// ledger. A session may be anonymous (empty user id); anonymous sessions
// exist so that unlock state survives across requests.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quickmark-app/quickmark/internal/policy"
	"github.com/quickmark-app/quickmark/internal/store"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Session configuration
const (
	DefaultSessionDuration = 30 * 24 * time.Hour // 30 days
	SessionIDLength        = 32                  // 256 bits
	SessionCookieName      = "session_id"

	// AuthorTokenHeader carries the caller-supplied author token used
	// for token-based mutation rights.
	AuthorTokenHeader = "X-Author-Token"
)

// Service handles session lifecycle and actor construction.
type Service struct {
	store    *store.Store
	clock    policy.Clock
	duration time.Duration
}

// NewService creates a session service. A zero duration falls back to
// DefaultSessionDuration.
func NewService(st *store.Store, clock policy.Clock, duration time.Duration) *Service {
	if clock == nil {
		clock = policy.SystemClock()
	}
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &Service{store: st, clock: clock, duration: duration}
}

// Create creates a new session, optionally bound to a user. Returns the
// session ID which should be stored in a cookie.
func (s *Service) Create(ctx context.Context, userID string) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", fmt.Errorf("generate session ID: %w", err)
	}

	now := s.clock.Now()
	err = s.store.UpsertSession(ctx, store.SessionRecord{
		SessionID: sessionID,
		UserID:    userID,
		ExpiresAt: now.Add(s.duration),
		CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sessionID, nil
}

// Validate checks if a session is valid and returns the user ID (empty
// for anonymous sessions). Returns ErrSessionNotFound for missing or
// expired sessions.
func (s *Service) Validate(ctx context.Context, sessionID string) (string, error) {
	rec, err := s.store.GetValidSession(ctx, sessionID, s.clock.Now())
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	if rec == nil {
		return "", ErrSessionNotFound
	}
	return rec.UserID, nil
}

// Delete removes a session (logout). The session's unlock ledger rows
// are removed with it.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Cleanup removes all expired sessions. Called periodically by a
// background goroutine.
func (s *Service) Cleanup(ctx context.Context) error {
	if err := s.store.DeleteExpiredSessions(ctx, s.clock.Now()); err != nil {
		return fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return nil
}

// LoadActor builds the per-request actor context from session state. An
// empty or invalid session id yields an anonymous actor with empty
// unlock sets; policy evaluation never touches the session store
// directly.
func (s *Service) LoadActor(ctx context.Context, sessionID, providedAuthorToken string) (*policy.Actor, error) {
	if sessionID == "" {
		return policy.NewActor("", "", providedAuthorToken), nil
	}

	userID, err := s.Validate(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return policy.NewActor("", "", providedAuthorToken), nil
	}
	if err != nil {
		return nil, err
	}

	actor := policy.NewActor(sessionID, userID, providedAuthorToken)
	noteIDs, shareIDs, err := s.store.ListUnlocks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, id := range noteIDs {
		actor.GrantNoteUnlock(id)
	}
	for _, id := range shareIDs {
		actor.GrantShareUnlock(id)
	}
	return actor, nil
}

// PersistNoteUnlock writes a note unlock to the session ledger. No-op
// for sessionless actors, whose unlock state lives only in memory for
// the current request.
func (s *Service) PersistNoteUnlock(ctx context.Context, actor *policy.Actor, noteID string) error {
	if actor.SessionID == "" {
		return nil
	}
	return s.store.AddUnlock(ctx, actor.SessionID, store.UnlockKindNote, noteID, s.clock.Now())
}

// PersistShareUnlock writes a share unlock to the session ledger.
func (s *Service) PersistShareUnlock(ctx context.Context, actor *policy.Actor, shareID string) error {
	if actor.SessionID == "" {
		return nil
	}
	return s.store.AddUnlock(ctx, actor.SessionID, store.UnlockKindShare, shareID, s.clock.Now())
}

// Cookie helpers

// SetCookie sets the session cookie on the response.
func SetCookie(w http.ResponseWriter, sessionID string, duration time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true, // Requires HTTPS
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(duration.Seconds()),
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete immediately
	})
}

// GetFromRequest retrieves the session ID from the request cookie.
func GetFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return cookie.Value, nil
}

func generateSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
