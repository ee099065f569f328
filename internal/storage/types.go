package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"linotify/internal/event"
)

// DefaultBusyTimeout bounds how long a writer waits on a locked ledger.
const DefaultBusyTimeout = 10 * time.Second

var (
	// ErrDuplicateKey means an id was recorded twice. HasSeen is always
	// consulted first, so this indicates a concurrent writer or a logic bug.
	ErrDuplicateKey = errors.New("storage: event id already recorded")
	ErrClosed       = errors.New("storage: ledger closed")
)

// Error reports a failure of the underlying medium (unreachable, locked,
// corrupt).
type Error struct {
	Driver string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %s: %v", e.Driver, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config configures the ledger.
//
// Driver values:
//   - "sqlite": Path is the database file
//   - "postgres": DSN is the connection string
//   - "file": Path is the JSON Lines journal
type Config struct {
	Driver      string
	Path        string
	DSN         string
	BusyTimeout time.Duration // 0 means DefaultBusyTimeout
}

// Row is the persisted projection of an event.
type Row struct {
	ID       int64  `json:"id"`
	Created  string `json:"created"`
	Action   string `json:"action"`
	Username string `json:"username"`
	Status   string `json:"status"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Message  string `json:"message"`
}

func RowFromRecord(r event.Record) Row {
	return Row{
		ID:       r.ID,
		Created:  r.Created,
		Action:   r.Action,
		Username: r.Username,
		Status:   r.RawStatus,
		Label:    r.Entity.Label,
		Type:     r.Entity.Type,
		Message:  r.Message,
	}
}

// Ledger is the dedup store consulted by the relay.
type Ledger interface {
	// EnsureSchema creates the ledger table if it is missing.
	EnsureSchema(ctx context.Context) error
	HasSeen(ctx context.Context, id int64) (bool, error)
	// Record inserts one row and commits it immediately.
	Record(ctx context.Context, r event.Record) error
	// List returns up to limit rows, newest id first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Row, error)
	Close() error
}

func duplicate(id int64) error {
	return fmt.Errorf("%w: id %d", ErrDuplicateKey, id)
}
