// Package event defines the account activity record relayed by linotify and
// the tolerant decoding rules applied to the provider feed.
package event

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMissingID is returned when a feed record carries no id. The id is the
// dedup key, so such a record cannot be relayed safely.
var ErrMissingID = errors.New("event: record has no id")

// Entity is the resource an event is about.
type Entity struct {
	ID    string
	Type  string
	Label string
}

// Record is one account activity event.
type Record struct {
	ID        int64
	Created   string
	Action    string
	Username  string
	Status    Status
	RawStatus string
	Message   string
	Entity    Entity
}

// wire mirrors the provider JSON. Optional members are pointers so that
// "absent" and "null" both collapse to the zero value.
type wire struct {
	ID       *json.Number `json:"id"`
	Created  *string      `json:"created"`
	Action   *string      `json:"action"`
	Username *string      `json:"username"`
	Status   *string      `json:"status"`
	Message  *string      `json:"message"`
	Entity   *wireEntity  `json:"entity"`
}

type wireEntity struct {
	ID    any     `json:"id"`
	Type  *string `json:"type"`
	Label *string `json:"label"`
}

// Parse decodes one feed record. Missing optional members default to "".
func Parse(raw []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var w wire
	if err := dec.Decode(&w); err != nil {
		return Record{}, fmt.Errorf("event: decode: %w", err)
	}
	if w.ID == nil || *w.ID == "" {
		return Record{}, ErrMissingID
	}
	id, err := w.ID.Int64()
	if err != nil {
		return Record{}, fmt.Errorf("event: invalid id %q: %w", w.ID.String(), err)
	}

	r := Record{
		ID:        id,
		Created:   deref(w.Created),
		Action:    deref(w.Action),
		Username:  deref(w.Username),
		RawStatus: deref(w.Status),
		Message:   deref(w.Message),
	}
	r.Status = ParseStatus(r.RawStatus)
	if w.Entity != nil {
		r.Entity = Entity{
			ID:    scalarString(w.Entity.ID),
			Type:  deref(w.Entity.Type),
			Label: deref(w.Entity.Label),
		}
	}
	return r, nil
}

// ParseList decodes a batch, preserving order. The first bad record aborts.
func ParseList(items []json.RawMessage) ([]Record, error) {
	out := make([]Record, 0, len(items))
	for i, raw := range items {
		r, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
