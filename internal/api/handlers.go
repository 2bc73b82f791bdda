// Package api provides the JSON HTTP surface over the note and share
// services. Policy verdicts map onto HTTP statuses here: RequiresPassword
// becomes 401 with a locked payload, Forbidden 403, Expired 410, and
// NotFound 404.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/quickmark-app/quickmark/internal/errs"
	"github.com/quickmark-app/quickmark/internal/notes"
	"github.com/quickmark-app/quickmark/internal/obs"
	"github.com/quickmark-app/quickmark/internal/policy"
	"github.com/quickmark-app/quickmark/internal/ratelimit"
	"github.com/quickmark-app/quickmark/internal/session"
	"github.com/quickmark-app/quickmark/internal/shares"
)

// Handler wraps the services and provides HTTP handlers.
type Handler struct {
	notes           *notes.Service
	shares          *shares.Service
	sessions        *session.Service
	limiter         *ratelimit.Limiter
	sessionDuration time.Duration

	// devLogin enables POST /api/session, which binds a session to a
	// caller-chosen user id with no credential check. Test mode only.
	devLogin bool
}

// NewHandler creates an API handler.
func NewHandler(notesSvc *notes.Service, sharesSvc *shares.Service, sessions *session.Service, limiter *ratelimit.Limiter, sessionDuration time.Duration, devLogin bool) *Handler {
	if sessionDuration <= 0 {
		sessionDuration = session.DefaultSessionDuration
	}
	return &Handler{
		notes:           notesSvc,
		shares:          sharesSvc,
		sessions:        sessions,
		limiter:         limiter,
		sessionDuration: sessionDuration,
		devLogin:        devLogin,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	limited := ratelimit.Middleware(h.limiter, RateLimitKey)

	mux.HandleFunc("POST /api/notes", h.CreateNote)
	mux.HandleFunc("GET /api/notes", h.ListNotes)
	mux.HandleFunc("GET /api/notes/{id}", h.GetNote)
	mux.HandleFunc("PUT /api/notes/{id}", h.UpdateNote)
	mux.HandleFunc("DELETE /api/notes/{id}", h.DeleteNote)
	mux.Handle("POST /api/notes/{id}/unlock", limited(http.HandlerFunc(h.UnlockNote)))

	mux.HandleFunc("POST /api/notes/{id}/shares", h.CreateShare)
	mux.HandleFunc("GET /api/notes/{id}/shares", h.ListShares)
	mux.HandleFunc("GET /api/shares/{code}", h.ViewShare)
	mux.Handle("POST /api/shares/{code}/unlock", limited(http.HandlerFunc(h.UnlockShare)))
	mux.HandleFunc("PUT /api/shares/{id}", h.UpdateShare)
	mux.HandleFunc("DELETE /api/shares/{id}", h.DeleteShare)

	if h.devLogin {
		mux.HandleFunc("POST /api/session", h.DevLogin)
	}
	mux.HandleFunc("DELETE /api/session", h.Logout)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var params notes.CreateNoteParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.notes.Create(r.Context(), actorFrom(r), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 0)
	offset := intQuery(r, "offset", 0)

	result, err := h.notes.List(r.Context(), actorFrom(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	verdict, view, err := h.notes.Get(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeVerdict(w, verdict, view)
}

// UpdateNote handles PUT /api/notes/{id}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var params notes.UpdateNoteParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	verdict, view, err := h.notes.Update(r.Context(), actorFrom(r), r.PathValue("id"), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeVerdict(w, verdict, view)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.notes.Delete(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if verdict != policy.Allow {
		writeVerdict(w, verdict, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// unlockRequest is the body for unlock endpoints.
type unlockRequest struct {
	Password string `json:"password"`
}

// UnlockNote handles POST /api/notes/{id}/unlock.
func (h *Handler) UnlockNote(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	actor := actorFrom(r)
	if err := h.ensureSession(w, r, actor); err != nil {
		writeServiceError(w, r, err)
		return
	}

	verdict, outcome, err := h.notes.Unlock(r.Context(), actor, r.PathValue("id"), req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeUnlock(w, verdict, outcome)
}

// CreateShare handles POST /api/notes/{id}/shares.
func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	var params shares.CreateShareParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := h.shares.Create(r.Context(), r.PathValue("id"), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// ListShares handles GET /api/notes/{id}/shares.
func (h *Handler) ListShares(w http.ResponseWriter, r *http.Request) {
	views, err := h.shares.ListByNote(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shares": views})
}

// ViewShare handles GET /api/shares/{code}.
func (h *Handler) ViewShare(w http.ResponseWriter, r *http.Request) {
	verdict, view, err := h.shares.View(r.Context(), actorFrom(r), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeVerdict(w, verdict, view)
}

// UnlockShare handles POST /api/shares/{code}/unlock.
func (h *Handler) UnlockShare(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	actor := actorFrom(r)
	if err := h.ensureSession(w, r, actor); err != nil {
		writeServiceError(w, r, err)
		return
	}

	verdict, outcome, err := h.shares.Unlock(r.Context(), actor, r.PathValue("code"), req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeUnlock(w, verdict, outcome)
}

// UpdateShare handles PUT /api/shares/{id}.
func (h *Handler) UpdateShare(w http.ResponseWriter, r *http.Request) {
	var params shares.UpdateShareParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := h.shares.Update(r.Context(), r.PathValue("id"), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteShare handles DELETE /api/shares/{id}.
func (h *Handler) DeleteShare(w http.ResponseWriter, r *http.Request) {
	if err := h.shares.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DevLogin handles POST /api/session. Registered in test mode only.
func (h *Handler) DevLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	sessionID, err := h.sessions.Create(r.Context(), req.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	session.SetCookie(w, sessionID, h.sessionDuration)
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": req.UserID})
}

// Logout handles DELETE /api/session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := session.GetFromRequest(r); err == nil && sessionID != "" {
		if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	session.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps coded service errors to HTTP responses without
// leaking internals.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	if code == errs.Internal || code == errs.Unavailable {
		obs.From(r.Context()).Error("request failed", "err", err)
	}
	writeError(w, errs.HTTPStatus(code), errs.MessageOf(err))
}

// writeVerdict maps a policy verdict and optional payload to a response.
func writeVerdict(w http.ResponseWriter, verdict policy.Verdict, payload any) {
	switch verdict {
	case policy.Allow:
		writeJSON(w, http.StatusOK, payload)
	case policy.RequiresPassword:
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":   "password_required",
			"partial": payload,
		})
	case policy.Forbidden:
		writeError(w, http.StatusForbidden, "forbidden")
	case policy.Expired:
		writeError(w, http.StatusGone, "expired")
	case policy.NotFound:
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeUnlock maps an unlock attempt's verdict and outcome.
func writeUnlock(w http.ResponseWriter, verdict policy.Verdict, outcome policy.UnlockOutcome) {
	if verdict != policy.Allow {
		writeVerdict(w, verdict, nil)
		return
	}
	if outcome == policy.WrongPassword {
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
