package linode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"linotify/internal/event"
	logx "linotify/pkg/logx"
)

func newTestClient(t *testing.T, h http.HandlerFunc, pageSize int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, APIVersion: "/v4", Token: "secret", PageSize: pageSize}, srv.Client(), logx.Nop())
}

func TestFetchReturnsDataInOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v4/account/events" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.URL.Query().Get("page_size"); got != "50" {
			t.Errorf("page_size = %q", got)
		}
		_, _ = w.Write([]byte(`{"data":[
			{"id":12,"action":"linode_boot","status":"started","entity":{"id":9,"type":"linode","label":"web-1"}},
			{"id":11,"action":"token_create","status":"finished"}
		],"page":1,"pages":3}`))
	}, 50)

	got, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 || got[0].ID != 12 || got[1].ID != 11 {
		t.Fatalf("records = %+v", got)
	}
	if got[0].Status != event.StatusStarted || got[0].Entity.ID != "9" {
		t.Fatalf("record 0 = %+v", got[0])
	}
}

func TestFetchMissingDataIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{}`))
	}, 0)
	got, err := c.Fetch(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestFetchUpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		reasons int
	}{
		{"unauthorized", http.StatusUnauthorized, `{"errors":[{"reason":"Invalid Token"}]}`, 0},
		{"server error", http.StatusInternalServerError, `oops`, 0},
		{"error envelope", http.StatusOK, `{"errors":[{"reason":"Invalid Token"},{"field":"page_size","reason":"too big"}]}`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, 0)
			_, err := c.Fetch(context.Background())
			var ue *UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("err = %v, want *UpstreamError", err)
			}
			if ue.Status != tt.status || len(ue.Reasons) != tt.reasons {
				t.Fatalf("upstream error = %+v", ue)
			}
		})
	}
}

func TestFetchRejectsRecordWithoutID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"action":"linode_boot"}]}`))
	}, 0)
	_, err := c.Fetch(context.Background())
	if !errors.Is(err, event.ErrMissingID) {
		t.Fatalf("err = %v, want ErrMissingID", err)
	}
}
