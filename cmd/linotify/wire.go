package main

import (
	"fmt"
	"strings"

	"linotify/internal/config"
	"linotify/internal/httpx"
	"linotify/internal/relay"
	"linotify/internal/sink"
	"linotify/internal/sink/slack"
	"linotify/internal/sink/telegram"
	"linotify/internal/source/linode"
	"linotify/internal/storage"
	logx "linotify/pkg/logx"
)

func loggingConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File:    logx.FileConfig{Enabled: c.File.Enabled, Path: c.File.Path},
	}
}

func openLedger(cfg *config.Config, log logx.Logger) (storage.Ledger, error) {
	return storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		DSN:         cfg.Storage.DSN,
		BusyTimeout: cfg.Storage.BusyTimeoutDuration(),
	}, log)
}

func newSource(cfg *config.Config, log logx.Logger) (*linode.Client, error) {
	hc, err := httpx.NewClient(cfg.Linode.TimeoutDuration(), cfg.ProxyURL)
	if err != nil {
		return nil, err
	}
	return linode.New(linode.Config{
		BaseURL:    cfg.Linode.BaseURL,
		APIVersion: cfg.Linode.APIVersion,
		Token:      cfg.Linode.Token,
		PageSize:   cfg.Linode.PageSize,
	}, hc, log), nil
}

func newSink(cfg *config.Config, log logx.Logger) (sink.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Sink.Kind)) {
	case "slack":
		hc, err := httpx.NewClient(cfg.Sink.Slack.TimeoutDuration(), cfg.ProxyURL)
		if err != nil {
			return nil, err
		}
		return slack.New(slack.Config{
			WebhookURL: cfg.Sink.Slack.WebhookURL,
			RatePerSec: cfg.Sink.Slack.RatePerSec,
		}, hc, log), nil
	case "telegram":
		hc, err := httpx.NewClient(cfg.Sink.Telegram.TimeoutDuration(), cfg.ProxyURL)
		if err != nil {
			return nil, err
		}
		return telegram.New(telegram.Config{
			Token:    cfg.Sink.Telegram.Token,
			ChatID:   cfg.Sink.Telegram.ChatID,
			ThreadID: cfg.Sink.Telegram.ThreadID,
		}, hc, log)
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink.Kind)
	}
}

// newRelay wires source, sink and delivery policy around an open ledger.
func newRelay(cfg *config.Config, ledger storage.Ledger, log logx.Logger, m relay.Metrics) (*relay.Relay, error) {
	order, err := relay.ParseOrder(cfg.Delivery.Order)
	if err != nil {
		return nil, err
	}
	src, err := newSource(cfg, log)
	if err != nil {
		return nil, err
	}
	out, err := newSink(cfg, log)
	if err != nil {
		return nil, err
	}
	return relay.New(ledger, src, out,
		relay.WithLogger(log),
		relay.WithOrder(order),
		relay.WithMetrics(m),
	), nil
}
