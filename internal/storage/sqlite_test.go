package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	logx "linotify/pkg/logx"
)

const testBusyTimeout = 300 * time.Millisecond

// holdWriteLock takes the database write lock from a second connection until
// the test ends.
func holdWriteLock(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open holder: %v", err)
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("holder conn: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		_ = conn.Close()
		_ = db.Close()
	})
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		t.Fatalf("holder wal: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		t.Fatalf("holder begin: %v", err)
	}
}

func assertBoundedStorageError(t *testing.T, op string, err error, took time.Duration) {
	t.Helper()
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("%s err = %v, want *storage.Error", op, err)
	}
	if se.Driver != "sqlite" {
		t.Fatalf("%s driver = %q", op, se.Driver)
	}
	if took < testBusyTimeout/2 || took > 10*testBusyTimeout {
		t.Fatalf("%s gave up after %v, want about %v", op, took, testBusyTimeout)
	}
}

func TestSQLiteRecordGivesUpOnLockedDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	l, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: testBusyTimeout}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	if err := l.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	holdWriteLock(t, path)

	start := time.Now()
	err = l.Record(ctx, sampleRecord(1))
	assertBoundedStorageError(t, "Record", err, time.Since(start))
	if errors.Is(err, ErrDuplicateKey) {
		t.Fatal("lock timeout reported as duplicate")
	}

	// Readers are not blocked by the writer in WAL mode.
	if seen, err := l.HasSeen(ctx, 1); err != nil || seen {
		t.Fatalf("HasSeen = %v, %v", seen, err)
	}
}

func TestSQLiteEnsureSchemaGivesUpOnLockedDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	holdWriteLock(t, path)

	l, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: testBusyTimeout}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	start := time.Now()
	err = l.EnsureSchema(ctx)
	assertBoundedStorageError(t, "EnsureSchema", err, time.Since(start))
}

func TestSQLiteDuplicateID(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t, "sqlite")
	if err := l.Record(ctx, sampleRecord(3)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	err := l.Record(ctx, sampleRecord(3))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
	var se *Error
	if errors.As(err, &se) {
		t.Fatalf("duplicate reported as storage failure: %v", err)
	}
}
