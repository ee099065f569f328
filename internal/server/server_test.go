package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"linotify/internal/metrics"
	"linotify/internal/relay"
	logx "linotify/pkg/logx"
)

type fixedHealth struct {
	res relay.Result
	ok  bool
}

func (f fixedHealth) LastResult() (relay.Result, bool) { return f.res, f.ok }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name   string
		health fixedHealth
		code   int
		status string
	}{
		{"before first run", fixedHealth{}, http.StatusOK, "starting"},
		{"last run ok", fixedHealth{res: relay.Result{Summary: relay.Summary{RunID: "r1", Delivered: 2}}, ok: true}, http.StatusOK, "ok"},
		{"last run failed", fixedHealth{res: relay.Result{Err: errors.New("fetch events: boom")}, ok: true}, http.StatusServiceUnavailable, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("127.0.0.1:0", tt.health, nil, logx.Nop())
			rec := get(t, s.Handler(), "/healthz")
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d", rec.Code, tt.code)
			}
			var body healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.status {
				t.Fatalf("status = %q, want %q", body.Status, tt.status)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.EventsFetched(4)
	s := New("127.0.0.1:0", fixedHealth{}, m.Handler(), logx.Nop())

	rec := get(t, s.Handler(), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "linotify_events_fetched_total 4") {
		t.Fatalf("body:\n%s", rec.Body.String())
	}
}

func TestMetricsDisabled(t *testing.T) {
	s := New("127.0.0.1:0", fixedHealth{}, nil, logx.Nop())
	if rec := get(t, s.Handler(), "/metrics"); rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}
