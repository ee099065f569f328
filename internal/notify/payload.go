// Package notify turns an activity event into a sink-neutral notification.
//
// Formatting is pure: no I/O and no shared state. Sinks decide how headers,
// fields and buttons are rendered (Slack blocks, Telegram HTML, ...).
package notify

import "unicode/utf8"

// Icon is an abstract header icon. Sinks map it to their own glyphs.
type Icon int

const (
	IconNone Icon = iota
	IconFlag
	IconNoEntry
	IconCheck
	IconClock
	IconWarning
)

// Header is the status line of a notification. Both members are empty when the
// event status is not recognised.
type Header struct {
	Icon  Icon
	Label string
}

// Empty reports whether the header should be omitted.
func (h Header) Empty() bool { return h.Icon == IconNone && h.Label == "" }

// Field is one labeled value, rendered in order.
type Field struct {
	Title string
	Value string
}

// Button is a call-to-action link.
type Button struct {
	Label string
	URL   string
}

// Payload is the rendered notification for one event.
type Payload struct {
	EventID  int64
	Header   Header
	Fields   []Field
	Action   *Button
	Fallback string
}

// Field returns the value of the first field titled title.
func (p Payload) Field(title string) (string, bool) {
	for _, f := range p.Fields {
		if f.Title == title {
			return f.Value, true
		}
	}
	return "", false
}

// Truncate shortens s to at most n runes. A cut is marked with a trailing
// ellipsis, which counts toward n.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
