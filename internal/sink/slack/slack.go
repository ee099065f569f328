// Package slack delivers notifications to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"linotify/internal/httpx"
	"linotify/internal/notify"
	"linotify/internal/sink"
	logx "linotify/pkg/logx"
)

const name = "slack"

type Config struct {
	WebhookURL string
	// RatePerSec limits deliveries; <= 0 disables throttling.
	RatePerSec int
}

type Sink struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
	log     logx.Logger
}

var _ sink.Sink = (*Sink)(nil)

// New returns a webhook sink. A nil httpClient falls back to http.DefaultClient.
func New(cfg Config, httpClient *http.Client, log logx.Logger) *Sink {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}
	return &Sink{
		url:     cfg.WebhookURL,
		http:    httpClient,
		limiter: lim,
		log:     log.With(logx.String("comp", "sink"), logx.String("sink", name)),
	}
}

func (s *Sink) Name() string { return name }

func (s *Sink) Send(ctx context.Context, p notify.Payload) error {
	body, err := json.Marshal(render(p))
	if err != nil {
		return fmt.Errorf("slack: encode: %w", err)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return &sink.DeliveryError{Sink: name, EventID: p.EventID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return &sink.DeliveryError{Sink: name, EventID: p.EventID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &sink.DeliveryError{
			Sink:    name,
			EventID: p.EventID,
			Status:  resp.StatusCode,
			Body:    httpx.ReadBody(resp, 1<<10),
		}
	}
	s.log.Debug("notification delivered", logx.Int64("event_id", p.EventID))
	return nil
}
