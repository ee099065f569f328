package storage

import (
	"context"
	"database/sql"
	"errors"

	"linotify/internal/event"
	logx "linotify/pkg/logx"
)

// dialect holds the driver-specific statements of a database/sql ledger.
type dialect struct {
	name        string
	schema      string
	hasSeen     string
	insert      string
	list        string
	listAll     string
	isDuplicate func(error) bool
}

type sqlLedger struct {
	db  *sql.DB
	log logx.Logger
	d   dialect
}

func (s *sqlLedger) fail(op string, err error) error {
	return &Error{Driver: s.d.name, Op: op, Err: err}
}

func (s *sqlLedger) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
		return s.fail("ensure schema", err)
	}
	return nil
}

func (s *sqlLedger) HasSeen(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.db == nil {
		return false, ErrClosed
	}
	var one int
	err := s.db.QueryRowContext(ctx, s.d.hasSeen, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.fail("has seen", err)
	}
	return true, nil
}

func (s *sqlLedger) Record(ctx context.Context, r event.Record) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	row := RowFromRecord(r)
	_, err := s.db.ExecContext(ctx, s.d.insert,
		row.ID, row.Created, row.Action, row.Username, row.Status, row.Label, row.Type, row.Message,
	)
	if err != nil {
		if s.d.isDuplicate(err) {
			return duplicate(row.ID)
		}
		return s.fail("record", err)
	}
	s.log.Debug("event recorded", logx.Int64("event_id", row.ID))
	return nil
}

func (s *sqlLedger) List(ctx context.Context, limit int) ([]Row, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, s.d.list, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, s.d.listAll)
	}
	if err != nil {
		return nil, s.fail("list", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		// Rows written by older tooling may carry NULLs.
		var created, action, username, status, label, typ, message sql.NullString
		var r Row
		if err := rows.Scan(&r.ID, &created, &action, &username, &status, &label, &typ, &message); err != nil {
			return nil, s.fail("list", err)
		}
		r.Created, r.Action, r.Username = created.String, action.String, username.String
		r.Status, r.Label, r.Type, r.Message = status.String, label.String, typ.String, message.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list", err)
	}
	return out, nil
}

func (s *sqlLedger) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
