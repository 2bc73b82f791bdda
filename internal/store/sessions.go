package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Unlock kinds for the session_unlocks ledger.
const (
	UnlockKindNote  = "note"
	UnlockKindShare = "share"
)

// SessionRecord is a sessions table row.
type SessionRecord struct {
	SessionID string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UpsertSession inserts or refreshes a session row.
func (s *Store) UpsertSession(ctx context.Context, rec SessionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET user_id = excluded.user_id,
			expires_at = excluded.expires_at`,
		rec.SessionID, rec.UserID, rec.ExpiresAt.Unix(), rec.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// GetValidSession fetches a session that expires strictly after now.
// Returns (nil, nil) when no such session exists.
func (s *Store) GetValidSession(ctx context.Context, sessionID string, now time.Time) (*SessionRecord, error) {
	var (
		rec       SessionRecord
		expiresAt int64
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, expires_at, created_at
		FROM sessions WHERE session_id = ? AND expires_at > ?`,
		sessionID, now.Unix()).Scan(&rec.SessionID, &rec.UserID, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	rec.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &rec, nil
}

// DeleteSession removes a session; its unlock ledger rows cascade.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions that expired at or before now.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}

// AddUnlock records that a session unlocked a resource. INSERT OR IGNORE
// gives the ledger set semantics: re-unlocking is a no-op.
func (s *Store) AddUnlock(ctx context.Context, sessionID, kind, resourceID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO session_unlocks (session_id, kind, resource_id, unlocked_at)
		VALUES (?, ?, ?, ?)`,
		sessionID, kind, resourceID, now.Unix())
	if err != nil {
		return fmt.Errorf("add unlock: %w", err)
	}
	return nil
}

// ListUnlocks returns the resource ids a session has unlocked, split by
// kind.
func (s *Store) ListUnlocks(ctx context.Context, sessionID string) (noteIDs, shareIDs []string, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, resource_id FROM session_unlocks WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("list unlocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, resourceID string
		if err := rows.Scan(&kind, &resourceID); err != nil {
			return nil, nil, fmt.Errorf("scan unlock: %w", err)
		}
		switch kind {
		case UnlockKindNote:
			noteIDs = append(noteIDs, resourceID)
		case UnlockKindShare:
			shareIDs = append(shareIDs, resourceID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("list unlocks: %w", err)
	}
	return noteIDs, shareIDs, nil
}
