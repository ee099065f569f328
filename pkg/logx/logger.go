package logx

import (
	"io"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	LevelTrace = zerolog.TraceLevel
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

func init() {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat
}

// Field adds one key to a log event. Later fields win on duplicate keys.
type Field func(e *zerolog.Event)

func String(k, v string) Field         { return func(e *zerolog.Event) { e.Str(k, v) } }
func Int(k string, v int) Field        { return func(e *zerolog.Event) { e.Int(k, v) } }
func Int64(k string, v int64) Field    { return func(e *zerolog.Event) { e.Int64(k, v) } }
func Bool(k string, v bool) Field      { return func(e *zerolog.Event) { e.Bool(k, v) } }
func Any(k string, v any) Field        { return func(e *zerolog.Event) { e.Interface(k, v) } }
func Time(k string, v time.Time) Field { return func(e *zerolog.Event) { e.Time(k, v) } }

func Duration(k string, v time.Duration) Field {
	return func(e *zerolog.Event) { e.Dur(k, v) }
}

// Err is a no-op for a nil error.
func Err(err error) Field {
	return func(e *zerolog.Event) {
		if err != nil {
			e.Err(err)
		}
	}
}

// Logger writes structured events. A Logger obtained from a Service follows
// later Service.Apply calls. The zero value discards everything.
type Logger struct {
	svc    *Service
	base   *zerolog.Logger
	fields []Field
}

// Nop returns a logger that never writes.
func Nop() Logger { return Logger{} }

// NewConsole is a standalone console logger on stderr, for commands that run
// before (or without) a logging Service.
func NewConsole(level string) Logger {
	return New(newConsoleWriter(nil), level)
}

// New logs JSON lines to w.
func New(w io.Writer, level string) Logger {
	zl := zerolog.New(w).Level(levelOr(level, LevelInfo)).With().Timestamp().Logger()
	return Logger{base: &zl}
}

func (l Logger) root() zerolog.Logger {
	switch {
	case l.svc != nil:
		return l.svc.current()
	case l.base != nil:
		return *l.base
	default:
		return zerolog.Nop()
	}
}

// Enabled reports whether level would be written.
func (l Logger) Enabled(level Level) bool {
	zl := l.root()
	return zl.GetLevel() != zerolog.Disabled && level >= zl.GetLevel()
}

func (l Logger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	cp := l
	cp.fields = append(append([]Field(nil), l.fields...), fields...)
	return cp
}

func (l Logger) Trace(msg string, fields ...Field) { l.log(LevelTrace, msg, fields) }
func (l Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

func (l Logger) log(level Level, msg string, fields []Field) {
	zl := l.root()
	e := zl.WithLevel(level)
	if e == nil {
		return
	}
	// skip: runtime.Caller, log, Info/Warn/...
	if caller := shortCaller(3); caller != "" {
		e.Str(zerolog.CallerFieldName, caller)
	}
	for _, set := range [][]Field{l.fields, fields} {
		for _, f := range set {
			if f != nil {
				f(e)
			}
		}
	}
	e.Msg(msg)
}

func shortCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok || file == "" {
		return ""
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// ParseLevel accepts trace, debug, info, warn (or warning) and error, case
// insensitive. Empty means info.
func ParseLevel(s string) (Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return LevelInfo, true
	case "warning":
		s = "warn"
	case "trace", "debug", "info", "warn", "error":
	default:
		return LevelInfo, false
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return LevelInfo, false
	}
	return lvl, true
}

func levelOr(s string, def Level) Level {
	if lvl, ok := ParseLevel(s); ok && strings.TrimSpace(s) != "" {
		return lvl
	}
	return def
}
