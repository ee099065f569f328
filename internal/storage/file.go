package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"linotify/internal/event"
	logx "linotify/pkg/logx"
)

// fileLedger is a dependency-free ledger backed by an append-only JSON Lines
// journal. The journal is replayed into memory at open; each Record appends
// one line and fsyncs before returning.
//
// It does not coordinate with other processes.
type fileLedger struct {
	log  logx.Logger
	path string

	mu      sync.Mutex
	journal *os.File
	rows    map[int64]Row
}

func openFile(cfg Config, log logx.Logger) (Ledger, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &Error{Driver: "file", Op: "open", Err: err}
	}

	rows := map[int64]Row{}
	skipped, err := replayJournal(path, rows)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, &Error{Driver: "file", Op: "replay", Err: err}
	}
	if skipped > 0 {
		log.Warn("skipped unreadable journal lines", logx.Int("count", skipped), logx.String("path", path))
	}

	return &fileLedger{log: log, path: path, rows: rows}, nil
}

// EnsureSchema opens the journal for appending, creating it if needed.
func (s *fileLedger) EnsureSchema(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		return ErrClosed
	}
	if s.journal != nil {
		return nil
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return &Error{Driver: "file", Op: "ensure schema", Err: err}
	}
	s.journal = f
	return nil
}

func (s *fileLedger) HasSeen(ctx context.Context, id int64) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		return false, ErrClosed
	}
	_, ok := s.rows[id]
	return ok, nil
}

func (s *fileLedger) Record(ctx context.Context, r event.Record) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		return ErrClosed
	}
	if s.journal == nil {
		return &Error{Driver: "file", Op: "record", Err: errors.New("journal not open (EnsureSchema not called)")}
	}
	if _, ok := s.rows[r.ID]; ok {
		return duplicate(r.ID)
	}

	row := RowFromRecord(r)
	b, err := json.Marshal(row)
	if err != nil {
		return &Error{Driver: "file", Op: "record", Err: err}
	}
	b = append(b, '\n')
	if _, err := s.journal.Write(b); err != nil {
		return &Error{Driver: "file", Op: "record", Err: err}
	}
	if err := s.journal.Sync(); err != nil {
		return &Error{Driver: "file", Op: "record", Err: err}
	}
	s.rows[row.ID] = row
	return nil
}

func (s *fileLedger) List(ctx context.Context, limit int) ([]Row, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		return nil, ErrClosed
	}
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fileLedger) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
	if s.journal == nil {
		return nil
	}
	err := s.journal.Close()
	s.journal = nil
	return err
}

// replayJournal loads rows from path. Lines that fail to decode are counted and
// skipped; a torn final line after a crash must not brick the ledger.
func replayJournal(path string, out map[int64]Row) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	skipped := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var r struct {
			Row
			ID *int64 `json:"id"`
		}
		if err := json.Unmarshal(line, &r); err != nil || r.ID == nil {
			skipped++
			continue
		}
		r.Row.ID = *r.ID
		out[r.Row.ID] = r.Row
	}
	if err := sc.Err(); err != nil {
		return skipped, fmt.Errorf("scan %s: %w", path, err)
	}
	return skipped, nil
}
