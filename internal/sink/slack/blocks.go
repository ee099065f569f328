package slack

import (
	"strings"
	"unicode/utf8"

	"linotify/internal/notify"
)

// Block Kit message as accepted by incoming webhooks.
type message struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks,omitempty"`
}

type block struct {
	Type     string    `json:"type"`
	Text     *text     `json:"text,omitempty"`
	Fields   []text    `json:"fields,omitempty"`
	Elements []element `json:"elements,omitempty"`
}

type text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type element struct {
	Type string `json:"type"`
	Text text   `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Block Kit limits, in characters.
const (
	maxSectionFields = 10
	maxFieldText     = 2000
	maxHeaderText    = 150
	maxButtonText    = 75
	maxFallbackText  = 3000
)

var shortcodes = map[notify.Icon]string{
	notify.IconFlag:    ":triangular_flag_on_post:",
	notify.IconNoEntry: ":no_entry:",
	notify.IconCheck:   ":white_check_mark:",
	notify.IconClock:   ":clock3:",
	notify.IconWarning: ":warning:",
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func render(p notify.Payload) message {
	m := message{Text: notify.Truncate(p.Fallback, maxFallbackText)}

	if !p.Header.Empty() {
		h := p.Header.Label
		if sc, ok := shortcodes[p.Header.Icon]; ok {
			h = strings.TrimSpace(sc + " " + h)
		}
		m.Blocks = append(m.Blocks, block{
			Type: "header",
			Text: &text{Type: "plain_text", Text: notify.Truncate(h, maxHeaderText), Emoji: true},
		})
	}

	var fields []text
	for _, f := range p.Fields {
		fields = append(fields, text{Type: "mrkdwn", Text: fieldText(f)})
	}
	for len(fields) > 0 {
		n := min(len(fields), maxSectionFields)
		m.Blocks = append(m.Blocks, block{Type: "section", Fields: fields[:n]})
		fields = fields[n:]
	}

	if p.Action != nil && p.Action.URL != "" {
		m.Blocks = append(m.Blocks, block{
			Type: "actions",
			Elements: []element{{
				Type: "button",
				Text: text{Type: "plain_text", Text: notify.Truncate(p.Action.Label, maxButtonText)},
				URL:  p.Action.URL,
			}},
		})
	}
	return m
}

// fieldText renders "*Title*\nvalue" within maxFieldText. The value is cut
// before escaping so an entity is never split.
func fieldText(f notify.Field) string {
	prefix := "*" + f.Title + "*\n"
	budget := maxFieldText - utf8.RuneCountInString(prefix)
	n := budget
	for {
		if n <= 0 {
			return notify.Truncate(prefix, maxFieldText)
		}
		v := mrkdwnEscaper.Replace(notify.Truncate(f.Value, n))
		over := utf8.RuneCountInString(v) - budget
		if over <= 0 {
			return prefix + v
		}
		n -= over
	}
}
