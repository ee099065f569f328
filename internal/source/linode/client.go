// Package linode fetches account events from the Linode API.
package linode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"linotify/internal/event"
	"linotify/internal/httpx"
	logx "linotify/pkg/logx"
)

const eventsPath = "/account/events"

// maxErrorBody caps how much of a failed response is kept on UpstreamError.
const maxErrorBody = 4 << 10

// UpstreamError is returned when the API answers with a non-200 status or
// an error envelope.
type UpstreamError struct {
	Status  int
	Body    string
	Reasons []string
}

func (e *UpstreamError) Error() string {
	if len(e.Reasons) > 0 {
		return fmt.Sprintf("linode: api error (status %d): %s", e.Status, strings.Join(e.Reasons, "; "))
	}
	return fmt.Sprintf("linode: unexpected status %d: %s", e.Status, e.Body)
}

type Config struct {
	BaseURL    string
	APIVersion string
	Token      string
	// PageSize is sent as page_size when > 0.
	PageSize int
}

// Client reads one page of account events per Fetch.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

// New returns a client. A nil httpClient falls back to http.DefaultClient.
func New(cfg Config, httpClient *http.Client, log logx.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient, log: log.With(logx.String("comp", "linode"))}
}

type envelope struct {
	Data   []json.RawMessage `json:"data"`
	Errors []apiError        `json:"errors"`
}

type apiError struct {
	Reason string `json:"reason"`
	Field  string `json:"field,omitempty"`
}

func (c *Client) eventsURL() (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.cfg.BaseURL), "/")
	version := "/" + strings.Trim(strings.TrimSpace(c.cfg.APIVersion), "/")
	if version == "/" {
		version = ""
	}
	u, err := url.Parse(base + version + eventsPath)
	if err != nil {
		return "", fmt.Errorf("linode: build url: %w", err)
	}
	if c.cfg.PageSize > 0 {
		q := u.Query()
		q.Set("page_size", strconv.Itoa(c.cfg.PageSize))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Fetch returns the first page of account events in API order.
func (c *Client) Fetch(ctx context.Context) ([]event.Record, error) {
	target, err := c.eventsURL()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("linode: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linode: fetch events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: httpx.ReadBody(resp, maxErrorBody)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("linode: decode events: %w", err)
	}
	if len(env.Errors) > 0 {
		reasons := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			if e.Field != "" {
				reasons = append(reasons, e.Field+": "+e.Reason)
				continue
			}
			reasons = append(reasons, e.Reason)
		}
		return nil, &UpstreamError{Status: resp.StatusCode, Reasons: reasons}
	}

	records, err := event.ParseList(env.Data)
	if err != nil {
		return nil, fmt.Errorf("linode: %w", err)
	}
	c.log.Debug("events fetched", logx.Int("count", len(records)))
	return records, nil
}
