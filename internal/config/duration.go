package config

import (
	"strings"
	"time"
)

// parseDuration reads a Go duration string. Empty means zero; negative
// values are rejected. Failures are *Error for field.
func parseDuration(field, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, invalid(field, "invalid duration %q", raw)
	}
	if d < 0 {
		return 0, invalid(field, "duration must be >= 0, got %s", s)
	}
	return d, nil
}

// durationOr is parseDuration for already-validated values: unset, zero or
// malformed input yields def.
func durationOr(raw string, def time.Duration) time.Duration {
	d, err := parseDuration("", raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
