package notify

import (
	"reflect"
	"testing"

	"linotify/internal/event"
)

func TestFormatFirstSighting(t *testing.T) {
	r := event.Record{
		ID:       1,
		Status:   event.StatusScheduled,
		Action:   "linode_reboot",
		Created:  "2024-01-01T00:00:00",
		Username: "alice",
		Entity:   event.Entity{ID: "9", Type: "linode", Label: "web-1"},
	}
	p := Format(r)

	if p.Header != (Header{Icon: IconClock, Label: "Scheduled"}) {
		t.Fatalf("Header = %+v", p.Header)
	}
	want := []Field{
		{Title: "Action", Value: "linode_reboot"},
		{Title: "When", Value: "2024-01-01T00:00:00"},
		{Title: "Id", Value: "1"},
		{Title: "Username", Value: "alice"},
		{Title: "Label", Value: "web-1"},
		{Title: "Type", Value: "linode"},
	}
	if !reflect.DeepEqual(p.Fields, want) {
		t.Fatalf("Fields = %+v, want %+v", p.Fields, want)
	}
	if p.Action == nil || p.Action.URL != "https://cloud.linode.com/linodes/9" || p.Action.Label != "View Linode" {
		t.Fatalf("Action = %+v", p.Action)
	}
	if p.EventID != 1 {
		t.Fatalf("EventID = %d", p.EventID)
	}
}

func TestFormatStatusHeaders(t *testing.T) {
	tests := []struct {
		status event.Status
		want   Header
	}{
		{event.StatusStarted, Header{Icon: IconFlag, Label: "Started"}},
		{event.StatusFailed, Header{Icon: IconNoEntry, Label: "Failed"}},
		{event.StatusFinished, Header{Icon: IconCheck, Label: "Finished"}},
		{event.StatusScheduled, Header{Icon: IconClock, Label: "Scheduled"}},
		{event.StatusNotification, Header{Icon: IconWarning, Label: "Notification"}},
		{event.StatusUnknown, Header{}},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			p := Format(event.Record{ID: 7, Status: tt.status, Action: "a"})
			if p.Header != tt.want {
				t.Fatalf("Header = %+v, want %+v", p.Header, tt.want)
			}
			if tt.status == event.StatusUnknown && !p.Header.Empty() {
				t.Fatal("unknown status should produce an empty header")
			}
		})
	}
}

func TestFormatNoEntityUsesDefaultAction(t *testing.T) {
	p := Format(event.Record{ID: 3, Status: event.StatusFinished, Action: "account_update", Username: "bob"})

	if _, ok := p.Field(FieldLabel); ok {
		t.Fatal("Label field should be omitted")
	}
	if _, ok := p.Field(FieldType); ok {
		t.Fatal("Type field should be omitted")
	}
	if _, ok := p.Field(FieldMessage); ok {
		t.Fatal("Message field should be omitted")
	}
	if p.Action == nil || *p.Action != DefaultButton() {
		t.Fatalf("Action = %+v, want default", p.Action)
	}
	if p.Action.URL != "https://cloud.linode.com/" || p.Action.Label != "Launch Console" {
		t.Fatalf("unexpected default button %+v", p.Action)
	}
}

func TestFormatMessageIncludedWhenPresent(t *testing.T) {
	p := Format(event.Record{ID: 3, Action: "a", Message: "  disk full  "})
	v, ok := p.Field(FieldMessage)
	if !ok || v != "disk full" {
		t.Fatalf("Message = %q, %v", v, ok)
	}
}

func TestFormatLabelWithoutType(t *testing.T) {
	p := Format(event.Record{ID: 3, Action: "a", Entity: event.Entity{Label: "thing"}})
	if v, _ := p.Field(FieldLabel); v != "thing" {
		t.Fatalf("Label = %q", v)
	}
	if _, ok := p.Field(FieldType); ok {
		t.Fatal("Type field should be omitted")
	}
	if *p.Action != DefaultButton() {
		t.Fatalf("Action = %+v", p.Action)
	}
}

func TestButtonRouting(t *testing.T) {
	tests := []struct {
		name   string
		entity event.Entity
		want   Button
	}{
		{"linode", event.Entity{ID: "123", Type: "linode"}, Button{"View Linode", "https://cloud.linode.com/linodes/123"}},
		{"stackscript", event.Entity{ID: "55", Type: "stackscript"}, Button{"View StackScript", "https://cloud.linode.com/stackscripts/55"}},
		{"token ignores id", event.Entity{ID: "999", Type: "token"}, Button{"View API Tokens", "https://cloud.linode.com/profile/tokens"}},
		{"ssh key", event.Entity{ID: "1", Type: "user_ssh_key"}, Button{"View SSH Keys", "https://cloud.linode.com/profile/keys"}},
		{"unknown type", event.Entity{ID: "1", Type: "domain"}, Button{"Launch Console", "https://cloud.linode.com/"}},
		{"linode without id", event.Entity{Type: "linode"}, Button{"Launch Console", "https://cloud.linode.com/"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ButtonFor(tt.entity); got != tt.want {
				t.Fatalf("ButtonFor = %+v, want %+v", got, tt.want)
			}
			p := Format(event.Record{ID: 1, Entity: tt.entity})
			if *p.Action != tt.want {
				t.Fatalf("Format action = %+v, want %+v", *p.Action, tt.want)
			}
		})
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	r := event.Record{ID: 11, Status: event.StatusFailed, Action: "a", Message: "m", Entity: event.Entity{ID: "1", Type: "linode", Label: "l"}}
	a, b := Format(r), Format(r)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Format not deterministic: %+v vs %+v", a, b)
	}
	if a.Fallback != "Failed: a (l) #11" {
		t.Fatalf("Fallback = %q", a.Fallback)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exact", 5, "exact"},
		{"abcdef", 4, "abc…"},
		{"héllo wörld", 6, "héllo…"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestParseResourceType(t *testing.T) {
	tests := map[string]ResourceType{
		"linode":       ResourceLinode,
		"user_ssh_key": ResourceSSHKey,
		"token":        ResourceToken,
		"stackscript":  ResourceStackScript,
		"domain":       ResourceOther,
		"":             ResourceOther,
	}
	for raw, want := range tests {
		if got := ParseResourceType(raw); got != want {
			t.Errorf("ParseResourceType(%q) = %v, want %v", raw, got, want)
		}
	}
}
