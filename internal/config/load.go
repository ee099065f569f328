package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	logx "linotify/pkg/logx"
)

// Getenv looks up one environment variable. os.Getenv satisfies it.
type Getenv func(key string) string

// Load builds the process configuration: defaults, then the optional file at
// path, then the environment overlay. The result is validated.
func Load(path string, getenv Getenv) (*Config, error) {
	cfg, err := Read(path, getenv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that only need a subset of
// the settings (see ValidateStorage).
func Read(path string, getenv Getenv) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decodeInto(&cfg, path, b); err != nil {
			return nil, err
		}
	}
	if getenv != nil {
		applyEnv(&cfg, getenv)
	}
	return &cfg, nil
}

// decodeInto strictly decodes data over the values already present in cfg.
func decodeInto(cfg *Config, path string, data []byte) error {
	jb, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("decode %s config: %w", format, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("decode %s config: trailing data", format)
		}
		return fmt.Errorf("decode %s config: %w", format, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv Getenv) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Linode.Token, "LINODE_TOKEN")
	set(&cfg.Sink.Slack.WebhookURL, "SLACK_WEBHOOK_URL")
	set(&cfg.ProxyURL, "PROXY_URL")
	set(&cfg.Storage.Driver, "LINOTIFY_DB_DRIVER")
	set(&cfg.Storage.Path, "LINOTIFY_DB_PATH")
	set(&cfg.Logging.Level, "LINOTIFY_LOG_LEVEL")
	set(&cfg.Daemon.Schedule, "LINOTIFY_SCHEDULE")
	set(&cfg.Sink.Kind, "LINOTIFY_SINK")
	set(&cfg.Sink.Telegram.Token, "TELEGRAM_TOKEN")

	// A malformed chat id is left as 0 and reported by Validate.
	if v := strings.TrimSpace(getenv("TELEGRAM_CHAT_ID")); v != "" {
		id, _ := strconv.ParseInt(v, 10, 64)
		cfg.Sink.Telegram.ChatID = id
	}
}

// Validate reports every missing or malformed setting. Each problem is a
// *Error; the joined result matches ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if strings.TrimSpace(c.Linode.Token) == "" {
		add(invalid("linode.token", "LINODE_TOKEN is required"))
	}
	add(checkURL("linode.base_url", c.Linode.BaseURL, true))
	if c.Linode.PageSize != 0 && (c.Linode.PageSize < 25 || c.Linode.PageSize > 500) {
		add(invalid("linode.page_size", "must be between 25 and 500, got %d", c.Linode.PageSize))
	}
	add(checkDuration("linode.timeout", c.Linode.Timeout))

	switch strings.ToLower(strings.TrimSpace(c.Sink.Kind)) {
	case "slack":
		if strings.TrimSpace(c.Sink.Slack.WebhookURL) == "" {
			add(invalid("sink.slack.webhook_url", "SLACK_WEBHOOK_URL is required"))
		} else {
			add(checkURL("sink.slack.webhook_url", c.Sink.Slack.WebhookURL, true))
		}
		if c.Sink.Slack.RatePerSec < 0 {
			add(invalid("sink.slack.rate_per_sec", "must be >= 0"))
		}
		add(checkDuration("sink.slack.timeout", c.Sink.Slack.Timeout))
	case "telegram":
		if strings.TrimSpace(c.Sink.Telegram.Token) == "" {
			add(invalid("sink.telegram.token", "TELEGRAM_TOKEN is required"))
		}
		if c.Sink.Telegram.ChatID == 0 {
			add(invalid("sink.telegram.chat_id", "TELEGRAM_CHAT_ID is required"))
		}
		add(checkDuration("sink.telegram.timeout", c.Sink.Telegram.Timeout))
	default:
		add(invalid("sink.kind", "unknown sink %q", c.Sink.Kind))
	}

	add(checkURL("proxy_url", c.ProxyURL, false))

	errs = append(errs, c.storageErrors()...)

	switch c.Delivery.Order {
	case "", OrderDeliverFirst, OrderRecordFirst:
	default:
		add(invalid("delivery.order", "unknown order %q", c.Delivery.Order))
	}

	if _, ok := logx.ParseLevel(c.Logging.Level); !ok {
		add(invalid("logging.level", "unknown level %q", c.Logging.Level))
	}

	if strings.TrimSpace(c.Daemon.Schedule) == "" {
		add(invalid("daemon.schedule", "must not be empty"))
	}
	if tz := strings.TrimSpace(c.Daemon.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add(invalid("daemon.timezone", "%v", err))
		}
	}
	add(checkDuration("daemon.run_timeout", c.Daemon.RunTimeout))

	return errors.Join(errs...)
}

// ValidateStorage checks only the storage section.
func (c *Config) ValidateStorage() error {
	return errors.Join(c.storageErrors()...)
}

func (c *Config) storageErrors() []error {
	var errs []error
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "sqlite", "sqlite3", "file":
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, invalid("storage.path", "required for driver %q", c.Storage.Driver))
		}
	case "postgres", "postgresql":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, invalid("storage.dsn", "required for driver %q", c.Storage.Driver))
		}
	default:
		errs = append(errs, invalid("storage.driver", "unknown driver %q", c.Storage.Driver))
	}
	if err := checkDuration("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func checkDuration(field, raw string) error {
	_, err := parseDuration(field, raw)
	return err
}

func checkURL(field, raw string, required bool) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		if required {
			return invalid(field, "must not be empty")
		}
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid(field, "not an absolute URL")
	}
	return nil
}
