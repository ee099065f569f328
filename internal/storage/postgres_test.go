package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	logx "linotify/pkg/logx"
)

// newMockLedger creates a postgres ledger over sqlmock with expectation checking.
func newMockLedger(t *testing.T) (*sqlLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	mock.ExpectExec("SET lock_timeout = 10000").WillReturnResult(sqlmock.NewResult(0, 0))
	l, err := newPostgres(db, Config{BusyTimeout: DefaultBusyTimeout}, logx.Nop())
	if err != nil {
		t.Fatalf("newPostgres: %v", err)
	}
	return l, mock
}

var ledgerColumns = []string{"id", "created", "action", "username", "status", "label", "type", "message"}

func TestPostgresEnsureSchema(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS notifications").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := l.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
}

func TestPostgresEnsureSchemaFailure(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS notifications").WillReturnError(errors.New("canceling statement due to lock timeout"))

	err := l.EnsureSchema(context.Background())
	var se *Error
	if !errors.As(err, &se) || se.Op != "ensure schema" || se.Driver != "postgres" {
		t.Fatalf("err = %#v, want *storage.Error for ensure schema", err)
	}
}

func TestPostgresHasSeen(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectQuery(`SELECT 1 FROM notifications WHERE id = \$1`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM notifications WHERE id = \$1`).WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	ctx := context.Background()
	seen, err := l.HasSeen(ctx, 7)
	if err != nil || !seen {
		t.Fatalf("HasSeen(7) = %v, %v", seen, err)
	}
	seen, err = l.HasSeen(ctx, 8)
	if err != nil || seen {
		t.Fatalf("HasSeen(8) = %v, %v", seen, err)
	}
}

func TestPostgresRecord(t *testing.T) {
	l, mock := newMockLedger(t)
	r := sampleRecord(1)
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs(int64(1), r.Created, r.Action, r.Username, "finished", "web-1", "linode", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := l.Record(context.Background(), r); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestPostgresRecordDuplicate(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := l.Record(context.Background(), sampleRecord(1))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestPostgresRecordStorageError(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec(`INSERT INTO notifications`).WillReturnError(errors.New("connection reset"))

	err := l.Record(context.Background(), sampleRecord(1))
	if errors.Is(err, ErrDuplicateKey) {
		t.Fatal("connection failure must not be reported as duplicate")
	}
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *storage.Error", err)
	}
}

func TestPostgresListToleratesNulls(t *testing.T) {
	l, mock := newMockLedger(t)
	rows := sqlmock.NewRows(ledgerColumns).
		AddRow(9, "2024-01-02", "token_create", nil, "finished", nil, nil, nil).
		AddRow(3, "2024-01-01", "linode_boot", "alice", "started", "web-1", "linode", "")
	mock.ExpectQuery(`SELECT id, created, action, username, status, label, type, message FROM notifications ORDER BY id DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := l.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != 9 || got[0].Username != "" || got[0].Label != "" {
		t.Fatalf("row 0 = %+v", got[0])
	}
	if got[1].Label != "web-1" {
		t.Fatalf("row 1 = %+v", got[1])
	}
}
