package store

import (
	"database/sql"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// SQLiteDriverName is the project-specific SQLCipher driver with
	// foreign key enforcement enabled on every connection. The shares
	// table relies on ON DELETE CASCADE, which SQLite ignores unless the
	// pragma is set per connection.
	SQLiteDriverName = "sqlite3_quickmark"
)

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec("PRAGMA foreign_keys = ON", nil)
			return err
		},
	})
}
