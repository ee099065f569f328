package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	logx "linotify/pkg/logx"

	"github.com/lib/pq"
)

//go:embed schema/postgres.sql
var postgresSchema string

// pgUniqueViolation is the SQLSTATE for a unique/primary key violation.
const pgUniqueViolation = "23505"

var postgresDialect = dialect{
	name:        "postgres",
	schema:      postgresSchema,
	hasSeen:     `SELECT 1 FROM notifications WHERE id = $1`,
	insert:      `INSERT INTO notifications(id, created, action, username, status, label, type, message) VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
	list:        `SELECT id, created, action, username, status, label, type, message FROM notifications ORDER BY id DESC LIMIT $1`,
	listAll:     `SELECT id, created, action, username, status, label, type, message FROM notifications ORDER BY id DESC`,
	isDuplicate: isPostgresDuplicate,
}

func openPostgres(cfg Config, log logx.Logger) (Ledger, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &Error{Driver: "postgres", Op: "open", Err: err}
	}
	l, err := newPostgres(db, cfg, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// newPostgres wraps an open handle. Split from openPostgres so tests can pass
// a mocked *sql.DB.
func newPostgres(db *sql.DB, cfg Config, log logx.Logger) (*sqlLedger, error) {
	// One session so lock_timeout applies to every statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.BusyTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, &Error{Driver: "postgres", Op: "open", Err: err}
	}
	stmt := fmt.Sprintf("SET lock_timeout = %d", cfg.BusyTimeout.Milliseconds())
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, &Error{Driver: "postgres", Op: "open", Err: err}
	}
	log.Debug("postgres ledger opened")
	return &sqlLedger{db: db, log: log, d: postgresDialect}, nil
}

func isPostgresDuplicate(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}
