package notify

import (
	"fmt"
	"strconv"
	"strings"

	"linotify/internal/event"
)

// Field titles, in render order.
const (
	FieldAction   = "Action"
	FieldWhen     = "When"
	FieldID       = "Id"
	FieldUsername = "Username"
	FieldMessage  = "Message"
	FieldLabel    = "Label"
	FieldType     = "Type"
)

// HeaderFor maps a status to its header. Unknown statuses yield an empty header.
func HeaderFor(s event.Status) Header {
	switch s {
	case event.StatusStarted:
		return Header{Icon: IconFlag, Label: "Started"}
	case event.StatusFailed:
		return Header{Icon: IconNoEntry, Label: "Failed"}
	case event.StatusFinished:
		return Header{Icon: IconCheck, Label: "Finished"}
	case event.StatusScheduled:
		return Header{Icon: IconClock, Label: "Scheduled"}
	case event.StatusNotification:
		return Header{Icon: IconWarning, Label: "Notification"}
	default:
		return Header{}
	}
}

// Format builds the notification for r.
func Format(r event.Record) Payload {
	p := Payload{
		EventID: r.ID,
		Header:  HeaderFor(r.Status),
		Fields: []Field{
			{Title: FieldAction, Value: strings.TrimSpace(r.Action)},
			{Title: FieldWhen, Value: strings.TrimSpace(r.Created)},
			{Title: FieldID, Value: strconv.FormatInt(r.ID, 10)},
			{Title: FieldUsername, Value: strings.TrimSpace(r.Username)},
		},
	}
	if msg := strings.TrimSpace(r.Message); msg != "" {
		p.Fields = append(p.Fields, Field{Title: FieldMessage, Value: msg})
	}
	if r.Entity.Label != "" {
		p.Fields = append(p.Fields, Field{Title: FieldLabel, Value: r.Entity.Label})
	}

	btn := DefaultButton()
	if r.Entity.Type != "" {
		p.Fields = append(p.Fields, Field{Title: FieldType, Value: r.Entity.Type})
		btn = ButtonFor(r.Entity)
	}
	p.Action = &btn

	p.Fallback = fallback(r, p.Header)
	return p
}

func fallback(r event.Record, h Header) string {
	var b strings.Builder
	if h.Label != "" {
		b.WriteString(h.Label)
		b.WriteString(": ")
	}
	b.WriteString(r.Action)
	if r.Entity.Label != "" {
		fmt.Fprintf(&b, " (%s)", r.Entity.Label)
	}
	fmt.Fprintf(&b, " #%d", r.ID)
	return b.String()
}
