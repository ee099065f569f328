package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Config selects where a Service writes.
type Config struct {
	Level   string
	Console bool
	File    FileConfig

	// Output receives console lines; nil means stderr.
	Output io.Writer
}

type FileConfig struct {
	Enabled bool
	Path    string
}

const defaultFilePath = "./linotify.log"

// Service owns the log writers and lets a running process switch level and
// destinations without recreating its Loggers.
type Service struct {
	mu       sync.Mutex
	file     *os.File
	filePath string

	root atomic.Pointer[zerolog.Logger]
}

// NewService applies cfg and returns the service with its root Logger. A log
// file that cannot be opened is reported on the console and skipped.
func NewService(cfg Config) (*Service, Logger) {
	s := &Service{}
	if err := s.Apply(cfg); err != nil {
		s.Logger().Warn("log file disabled", Err(err))
	}
	return s, s.Logger()
}

func (s *Service) Logger() Logger { return Logger{svc: s} }

func (s *Service) current() zerolog.Logger {
	if zl := s.root.Load(); zl != nil {
		return *zl
	}
	return zerolog.Nop()
}

// Apply swaps level and writers. An already open log file is kept when its
// path is unchanged. When the file cannot be opened the console is used and
// the error is returned.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		writers []io.Writer
		fileErr error
	)
	if cfg.Console {
		writers = append(writers, newConsoleWriter(cfg.Output))
	}

	path := ""
	if cfg.File.Enabled {
		path = strings.TrimSpace(cfg.File.Path)
		if path == "" {
			path = defaultFilePath
		}
	}
	if s.file != nil && s.filePath != path {
		_ = s.file.Close()
		s.file, s.filePath = nil, ""
	}
	if path != "" && s.file == nil {
		f, err := openLogFile(path)
		if err != nil {
			fileErr = err
		} else {
			s.file, s.filePath = f, path
		}
	}
	if s.file != nil {
		writers = append(writers, zerolog.SyncWriter(s.file))
	}

	if len(writers) == 0 {
		writers = append(writers, newConsoleWriter(cfg.Output))
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(levelOr(cfg.Level, LevelInfo)).
		With().Timestamp().Logger()
	s.root.Store(&zl)
	return fileErr
}

// Close releases the log file. Loggers keep writing to the console.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file, s.filePath = nil, ""
	zl := s.current().Output(newConsoleWriter(nil))
	s.root.Store(&zl)
	return err
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log file %q: %w", path, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log file %q: %w", path, err)
	}
	return f, nil
}

func newConsoleWriter(w io.Writer) io.Writer {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.ConsoleWriter{
		Out:          w,
		TimeFormat:   timeFormat,
		FormatCaller: func(i any) string {
			s, _ := i.(string)
			return s
		},
	}
}
