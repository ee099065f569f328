package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logx "linotify/pkg/logx"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed schema/sqlite.sql
var sqliteSchema string

const (
	sqliteColumns = `id, created, action, username, status, label, type, message`
)

var sqliteDialect = dialect{
	name:        "sqlite",
	schema:      sqliteSchema,
	hasSeen:     `SELECT 1 FROM notifications WHERE id = ?`,
	insert:      `INSERT INTO notifications(` + sqliteColumns + `) VALUES(?,?,?,?,?,?,?,?)`,
	list:        `SELECT ` + sqliteColumns + ` FROM notifications ORDER BY id DESC LIMIT ?`,
	listAll:     `SELECT ` + sqliteColumns + ` FROM notifications ORDER BY id DESC`,
	isDuplicate: isSQLiteDuplicate,
}

func openSQLite(cfg Config, log logx.Logger) (Ledger, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &Error{Driver: "sqlite", Op: "open", Err: err}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Driver: "sqlite", Op: "open", Err: err}
	}
	// Single writer: one connection keeps the busy_timeout pragma in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout)
	defer cancel()
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, &Error{Driver: "sqlite", Op: "open", Err: fmt.Errorf("%s: %w", p, err)}
		}
	}

	log.Debug("sqlite ledger opened", logx.String("path", path))
	return &sqlLedger{db: db, log: log, d: sqliteDialect}, nil
}

func isSQLiteDuplicate(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
