package api

import (
	"context"
	"net/http"

	"github.com/quickmark-app/quickmark/internal/obs"
	"github.com/quickmark-app/quickmark/internal/policy"
	"github.com/quickmark-app/quickmark/internal/session"
)

type actorContextKey struct{}

// ActorMiddleware builds the per-request actor from the session cookie
// and the author token header, and stores it in the request context.
// Requests without a valid session proceed as anonymous actors.
func (h *Handler) ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := session.GetFromRequest(r)
		if err != nil {
			sessionID = ""
		}
		token := r.Header.Get(session.AuthorTokenHeader)

		actor, err := h.sessions.LoadActor(r.Context(), sessionID, token)
		if err != nil {
			obs.From(r.Context()).Error("load actor", "err", err)
			writeError(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}

		ctx := context.WithValue(r.Context(), actorContextKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorFrom returns the actor stored by ActorMiddleware, or an anonymous
// actor when the middleware did not run (direct handler tests).
func actorFrom(r *http.Request) *policy.Actor {
	if actor, ok := r.Context().Value(actorContextKey{}).(*policy.Actor); ok {
		return actor
	}
	return policy.NewActor("", "", r.Header.Get(session.AuthorTokenHeader))
}

// ensureSession guarantees the actor has a persistent session so unlock
// state survives across requests, creating an anonymous session and
// setting the cookie when needed.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request, actor *policy.Actor) error {
	if actor.SessionID != "" {
		return nil
	}
	sessionID, err := h.sessions.Create(r.Context(), actor.UserID)
	if err != nil {
		return err
	}
	actor.SessionID = sessionID
	session.SetCookie(w, sessionID, h.sessionDuration)
	return nil
}

// RateLimitKey keys unlock attempts by session, falling back to the
// remote address for sessionless callers.
func RateLimitKey(r *http.Request) string {
	if sessionID, err := session.GetFromRequest(r); err == nil && sessionID != "" {
		return "s:" + sessionID
	}
	return "a:" + r.RemoteAddr
}
