// Package store provides the SQLCipher-backed record store for notes,
// shares, sessions, and the session unlock ledger. Queries are explicit
// SQL; callers get plain record structs with NULLable columns surfaced
// as empty strings or nil pointers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

const (
	// MaxOpenConns caps connections; SQLite is single-writer, so high
	// connection counts are counterproductive.
	MaxOpenConns = 10

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns = 2
)

// Store wraps the database connection and exposes typed queries.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the application database at path,
// encrypted with the given hex key. An empty key opens an unencrypted
// database, which is intended for local development only.
func Open(path, hexKey string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dsn := path
	if hexKey != "" {
		dsn = fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, hexKey)
	}

	db, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(MaxOpenConns)
	db.SetMaxIdleConns(MaxIdleConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// inMemoryCounter gives each in-memory database a unique name so tests
// opening stores concurrently stay fully isolated.
var inMemoryCounter atomic.Int64

// OpenInMemory opens a fresh in-memory database. Each call returns a
// completely isolated store; used by tests.
func OpenInMemory() (*Store, error) {
	// A named shared-cache database lets the connection pool see one
	// database while keeping separate Open calls isolated.
	dsn := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", inMemoryCounter.Add(1))
	db, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	// One connection keeps the in-memory database alive for the store's
	// lifetime and sidesteps shared-cache lock contention.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying sql.DB for direct access when needed.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NoteRecord is a notes table row. Optional columns are empty strings or
// nil pointers.
type NoteRecord struct {
	ID           string
	OwnerUserID  string
	Title        string
	Content      string
	Metadata     string // JSON object text
	Visibility   int64
	PasswordHash string
	AuthorToken  string
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const noteColumns = `id, owner_user_id, title, content, metadata, visibility,
	password_hash, author_token, expires_at, created_at, updated_at`

// CreateNote inserts a note row.
func (s *Store) CreateNote(ctx context.Context, n NoteRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, owner_user_id, title, content, metadata, visibility,
			password_hash, author_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, nullString(n.OwnerUserID), n.Title, n.Content, n.Metadata, n.Visibility,
		nullString(n.PasswordHash), nullString(n.AuthorToken), nullUnix(n.ExpiresAt),
		n.CreatedAt.Unix(), n.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// GetNote fetches a note by id. Returns (nil, nil) when no row exists.
func (s *Store) GetNote(ctx context.Context, id string) (*NoteRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	return n, nil
}

// UpdateNote rewrites the mutable columns of a note row.
func (s *Store) UpdateNote(ctx context.Context, n NoteRecord) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, content = ?, metadata = ?, visibility = ?,
			password_hash = ?, expires_at = ?, updated_at = ?
		WHERE id = ?`,
		n.Title, n.Content, n.Metadata, n.Visibility,
		nullString(n.PasswordHash), nullUnix(n.ExpiresAt), n.UpdatedAt.Unix(), n.ID)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// DeleteNote removes a note row; dependent shares are removed by the
// ON DELETE CASCADE constraint.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

// ListNotesByOwner returns the owner's notes, newest first.
func (s *Store) ListNotesByOwner(ctx context.Context, ownerUserID string, limit, offset int) ([]NoteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE owner_user_id = ?
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?`, ownerUserID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []NoteRecord
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// CountNotesByOwner returns the owner's total note count.
func (s *Store) CountNotesByOwner(ctx context.Context, ownerUserID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notes WHERE owner_user_id = ?`, ownerUserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notes: %w", err)
	}
	return count, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanNote(sc scanner) (*NoteRecord, error) {
	var (
		n            NoteRecord
		owner        sql.NullString
		passwordHash sql.NullString
		authorToken  sql.NullString
		expiresAt    sql.NullInt64
		createdAt    int64
		updatedAt    int64
	)
	err := sc.Scan(&n.ID, &owner, &n.Title, &n.Content, &n.Metadata, &n.Visibility,
		&passwordHash, &authorToken, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	n.OwnerUserID = owner.String
	n.PasswordHash = passwordHash.String
	n.AuthorToken = authorToken.String
	n.ExpiresAt = unixPtr(expiresAt)
	n.CreatedAt = time.Unix(createdAt, 0).UTC()
	n.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
