package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ShareRecord is a shares table row.
type ShareRecord struct {
	ID           string
	NoteID       string
	ShareCode    string
	PasswordHash string
	ExpiresAt    *time.Time
	Views        int64
	CreatedAt    time.Time
}

const shareColumns = `id, note_id, share_code, password_hash, expires_at, views, created_at`

// CreateShare inserts a share row. Returns the driver error unchanged on
// a share_code uniqueness violation so callers can retry with a fresh
// code.
func (s *Store) CreateShare(ctx context.Context, sh ShareRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shares (id, note_id, share_code, password_hash, expires_at, views, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sh.ID, sh.NoteID, sh.ShareCode, nullString(sh.PasswordHash),
		nullUnix(sh.ExpiresAt), sh.Views, sh.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert share: %w", err)
	}
	return nil
}

// GetShare fetches a share by id. Returns (nil, nil) when no row exists.
func (s *Store) GetShare(ctx context.Context, id string) (*ShareRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shareColumns+` FROM shares WHERE id = ?`, id)
	return shareOrNil(row.Scan, "get share")
}

// GetShareByCode fetches a share by its opaque share code. Returns
// (nil, nil) when no row exists.
func (s *Store) GetShareByCode(ctx context.Context, code string) (*ShareRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shareColumns+` FROM shares WHERE share_code = ?`, code)
	return shareOrNil(row.Scan, "get share by code")
}

// UpdateShare rewrites the mutable columns of a share row.
func (s *Store) UpdateShare(ctx context.Context, sh ShareRecord) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE shares SET password_hash = ?, expires_at = ? WHERE id = ?`,
		nullString(sh.PasswordHash), nullUnix(sh.ExpiresAt), sh.ID)
	if err != nil {
		return fmt.Errorf("update share: %w", err)
	}
	return nil
}

// DeleteShare removes a share row.
func (s *Store) DeleteShare(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM shares WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

// ListSharesByNote returns all shares referencing a note, oldest first.
func (s *Store) ListSharesByNote(ctx context.Context, noteID string) ([]ShareRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shareColumns+` FROM shares WHERE note_id = ? ORDER BY created_at, id`, noteID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var shares []ShareRecord
	for rows.Next() {
		sh, err := shareOrNil(rows.Scan, "scan share")
		if err != nil {
			return nil, err
		}
		shares = append(shares, *sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

// IncrementShareViews atomically bumps the view counter by one. This must
// stay a single UPDATE rather than read-modify-write so concurrent views
// do not undercount.
func (s *Store) IncrementShareViews(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE shares SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment share views: %w", err)
	}
	return nil
}

func shareOrNil(scan func(...any) error, op string) (*ShareRecord, error) {
	var (
		sh           ShareRecord
		passwordHash sql.NullString
		expiresAt    sql.NullInt64
		createdAt    int64
	)
	err := scan(&sh.ID, &sh.NoteID, &sh.ShareCode, &passwordHash, &expiresAt, &sh.Views, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sh.PasswordHash = passwordHash.String
	sh.ExpiresAt = unixPtr(expiresAt)
	sh.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &sh, nil
}
