package storage

import (
	"errors"
	"strings"

	logx "linotify/pkg/logx"
)

// Open initializes the configured ledger. The schema is not created here;
// callers run EnsureSchema before first use.
func Open(cfg Config, log logx.Logger) (Ledger, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = DefaultBusyTimeout
	}
	log = log.With(logx.String("comp", "ledger"), logx.String("driver", driver))

	switch driver {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "postgres", "postgresql":
		return openPostgres(cfg, log)
	case "file":
		return openFile(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
