package store

// SQL schema for the single application database. All timestamps are
// stored as Unix seconds; NULL expires_at means the row never expires.
const Schema = `
-- Notes table: Markdown notes, optionally anonymous (NULL owner_user_id)
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    owner_user_id TEXT,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    visibility INTEGER NOT NULL DEFAULT 0,
    password_hash TEXT,
    author_token TEXT,
    expires_at INTEGER,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_owner_user_id ON notes(owner_user_id);

-- Shares table: expiring share links for notes.
-- Cascade delete is a storage-layer constraint, not application logic.
CREATE TABLE IF NOT EXISTS shares (
    id TEXT PRIMARY KEY,
    note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
    share_code TEXT UNIQUE NOT NULL,
    password_hash TEXT,
    expires_at INTEGER,
    views INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_shares_note_id ON shares(note_id);

-- Sessions table: active transport sessions. user_id is empty for
-- anonymous sessions, which exist to carry unlock state.
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL DEFAULT '',
    expires_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

-- Session unlocks: append-only ledger of password-gated resources a
-- session has already authenticated against. The composite primary key
-- gives INSERT OR IGNORE natural set semantics.
CREATE TABLE IF NOT EXISTS session_unlocks (
    session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
    kind TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    unlocked_at INTEGER NOT NULL,
    PRIMARY KEY (session_id, kind, resource_id)
);
`
