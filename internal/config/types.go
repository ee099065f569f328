package config

import (
	"strings"
	"time"
)

// Config is the complete process configuration. It is built once (file, then
// environment overlay) and passed explicitly to every component.
type Config struct {
	Linode LinodeConfig `json:"linode"`
	Sink   SinkConfig   `json:"sink"`

	// ProxyURL is applied to both the Linode API client and the sink.
	ProxyURL string `json:"proxy_url,omitempty"`

	Storage  StorageConfig  `json:"storage"`
	Delivery DeliveryConfig `json:"delivery"`
	Logging  LoggingConfig  `json:"logging"`
	Daemon   DaemonConfig   `json:"daemon"`
}

// LinodeConfig configures the account events source.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type LinodeConfig struct {
	Token      string `json:"token,omitempty"` // do not log
	BaseURL    string `json:"base_url,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
	// PageSize is forwarded as ?page_size=; 0 keeps the API default.
	PageSize int    `json:"page_size,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

// SinkConfig selects and configures the chat target.
//
// Kind values: "slack" (default), "telegram".
type SinkConfig struct {
	Kind     string         `json:"kind"`
	Slack    SlackConfig    `json:"slack"`
	Telegram TelegramConfig `json:"telegram"`
}

type SlackConfig struct {
	WebhookURL string `json:"webhook_url,omitempty"` // do not log
	// RatePerSec throttles deliveries; Slack accepts about one message per second per webhook.
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	Token    string `json:"token,omitempty"` // do not log
	ChatID   int64  `json:"chat_id,omitempty"`
	ThreadID int    `json:"thread_id,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

// StorageConfig controls the notification ledger.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "/srv/app/sqlite/linode.db", "busy_timeout": "10s" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"` // postgres only; do not log
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// Delivery orders.
const (
	// OrderDeliverFirst sends, then records on success: at-least-once.
	OrderDeliverFirst = "deliver-first"
	// OrderRecordFirst records, then sends: at-most-once.
	OrderRecordFirst = "record-first"
)

type DeliveryConfig struct {
	Order string `json:"order,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// DaemonConfig controls `linotify daemon`.
//
// Schedule accepts a cron expression ("*/5 * * * *", "@hourly"), a Go duration
// ("5m") or HH:MM ("00:05").
type DaemonConfig struct {
	Schedule   string `json:"schedule,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	RunOnStart bool   `json:"run_on_start,omitempty"`
	// RunTimeout bounds one poll cycle; "0s" disables.
	RunTimeout string `json:"run_timeout,omitempty"`
	// Listen enables the /healthz and /metrics endpoint (e.g. "127.0.0.1:9109").
	Listen string `json:"listen,omitempty"`
}

// Default returns the configuration used when neither file nor environment
// set a value.
func Default() Config {
	return Config{
		Linode: LinodeConfig{
			BaseURL:    "https://api.linode.com",
			APIVersion: "/v4",
			Timeout:    "30s",
		},
		Sink: SinkConfig{
			Kind: "slack",
			Slack: SlackConfig{
				RatePerSec: 1,
				Timeout:    "30s",
			},
			Telegram: TelegramConfig{Timeout: "10s"},
		},
		Storage: StorageConfig{
			Driver:      "sqlite",
			Path:        "/srv/app/sqlite/linode.db",
			BusyTimeout: "10s",
		},
		Delivery: DeliveryConfig{Order: OrderDeliverFirst},
		Logging:  LoggingConfig{Level: "info", Console: true},
		Daemon: DaemonConfig{
			Schedule:   "5m",
			RunTimeout: "2m",
		},
	}
}

// Duration accessors. Values are validated by Validate; these fall back to
// the default when unset.

func (c LinodeConfig) TimeoutDuration() time.Duration {
	return durationOr(c.Timeout, 30*time.Second)
}

func (c SlackConfig) TimeoutDuration() time.Duration {
	return durationOr(c.Timeout, 30*time.Second)
}

func (c TelegramConfig) TimeoutDuration() time.Duration {
	return durationOr(c.Timeout, 10*time.Second)
}

func (c StorageConfig) BusyTimeoutDuration() time.Duration {
	return durationOr(c.BusyTimeout, 10*time.Second)
}

func (c DaemonConfig) RunTimeoutDuration() time.Duration {
	return durationOr(c.RunTimeout, 0)
}

// Redacted returns a copy safe to print: secrets are replaced by a marker.
func (c Config) Redacted() Config {
	out := c
	out.Linode.Token = redact(c.Linode.Token)
	out.Sink.Slack.WebhookURL = redact(c.Sink.Slack.WebhookURL)
	out.Sink.Telegram.Token = redact(c.Sink.Telegram.Token)
	out.Storage.DSN = redact(c.Storage.DSN)
	out.ProxyURL = redact(c.ProxyURL)
	return out
}

func redact(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return "<redacted>"
}
