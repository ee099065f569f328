package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"linotify/internal/event"
	"linotify/internal/notify"
	"linotify/internal/sink"
	logx "linotify/pkg/logx"
)

func samplePayload() notify.Payload {
	return notify.Format(event.Record{
		ID:       5,
		Created:  "2024-01-01T00:00:00",
		Action:   "user_ssh_key_add",
		Username: "bob",
		Status:   event.StatusFinished,
		Entity:   event.Entity{Type: "user_ssh_key", Label: "laptop <home>"},
	})
}

func TestRenderHTML(t *testing.T) {
	got := renderHTML(samplePayload())
	if !strings.HasPrefix(got, "<b>✅ Finished</b>\n") {
		t.Fatalf("header missing: %q", got)
	}
	if !strings.Contains(got, "<b>Label:</b> laptop &lt;home&gt;") {
		t.Fatalf("label not escaped: %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatal("trailing newline")
	}
}

func TestNewRequiresTokenAndChat(t *testing.T) {
	if _, err := New(Config{ChatID: 1}, nil, logx.Nop()); err == nil {
		t.Fatal("expected error without token")
	}
	if _, err := New(Config{Token: "t"}, nil, logx.Nop()); err == nil {
		t.Fatal("expected error without chat id")
	}
}

func TestSendUsesBotAPI(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&form)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":42}}}`))
	}))
	defer srv.Close()

	s, err := New(Config{Token: "123:abc", ChatID: 42, APIURL: srv.URL}, srv.Client(), logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Send(context.Background(), samplePayload()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if form["chat_id"] != "42" || form["parse_mode"] != "HTML" {
		t.Fatalf("form = %v", form)
	}
	if !strings.Contains(form["reply_markup"], "https://cloud.linode.com/profile/keys") {
		t.Fatalf("reply_markup = %q", form["reply_markup"])
	}
}

func TestSendAPIErrorIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	s, err := New(Config{Token: "123:abc", ChatID: 42, APIURL: srv.URL}, srv.Client(), logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = s.Send(context.Background(), samplePayload())
	var de *sink.DeliveryError
	if !errors.As(err, &de) || de.EventID != 5 {
		t.Fatalf("err = %v, want *sink.DeliveryError", err)
	}
}

func TestRenderHTMLFitsMessageLimit(t *testing.T) {
	p := notify.Format(event.Record{
		ID:      8,
		Action:  "linode_boot",
		Status:  event.StatusStarted,
		Message: strings.Repeat("m", 6000),
		Entity:  event.Entity{Type: "linode", ID: "1", Label: "web-1"},
	})

	fields := fitFields(p, maxMessageText)
	visible := utf8.RuneCountInString(p.Header.Label) + 2
	for _, f := range fields {
		visible += utf8.RuneCountInString(f.Title) + 3 + utf8.RuneCountInString(f.Value)
	}
	if visible > maxMessageText {
		t.Fatalf("visible text = %d runes", visible)
	}
	msg, _ := notify.Payload{Fields: fields}.Field(notify.FieldMessage)
	if !strings.HasSuffix(msg, "…") {
		t.Fatal("message should be cut")
	}
	if label, _ := (notify.Payload{Fields: fields}).Field(notify.FieldLabel); label != "web-1" {
		t.Fatalf("short field changed: %q", label)
	}
	if got := renderHTML(p); !strings.Contains(got, "<b>Label:</b> web-1") {
		t.Fatalf("render = %.80q", got)
	}

	small := samplePayload()
	if got := fitFields(small, maxMessageText); len(got) != len(small.Fields) || got[0] != small.Fields[0] {
		t.Fatal("payload within the limit must be unchanged")
	}
}
