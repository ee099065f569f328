// Package telegram delivers notifications to a Telegram chat through the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"linotify/internal/notify"
	"linotify/internal/sink"
	logx "linotify/pkg/logx"
)

const name = "telegram"

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int
	// APIURL overrides the Bot API endpoint (tests, local bot API servers).
	APIURL string
}

type Sink struct {
	bot      *tele.Bot
	chat     *tele.Chat
	threadID int
	limiter  *rate.Limiter
	log      logx.Logger
}

var _ sink.Sink = (*Sink)(nil)

var glyphs = map[notify.Icon]string{
	notify.IconFlag:    "🚩",
	notify.IconNoEntry: "⛔",
	notify.IconCheck:   "✅",
	notify.IconClock:   "🕒",
	notify.IconWarning: "⚠️",
}

// New builds the sink without contacting Telegram; the token is checked on
// the first Send.
func New(cfg Config, httpClient *http.Client, log logx.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.Token,
		Client:  httpClient,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &Sink{
		bot:      b,
		chat:     &tele.Chat{ID: cfg.ChatID},
		threadID: cfg.ThreadID,
		// Telegram allows roughly one message per second per chat.
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		log:     log.With(logx.String("comp", "sink"), logx.String("sink", name)),
	}, nil
}

func (s *Sink) Name() string { return name }

func (s *Sink) Send(ctx context.Context, p notify.Payload) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return &sink.DeliveryError{Sink: name, EventID: p.EventID, Err: err}
	}

	opt := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		ThreadID:              s.threadID,
	}
	if p.Action != nil && p.Action.URL != "" {
		rm := &tele.ReplyMarkup{}
		rm.Inline(rm.Row(rm.URL(p.Action.Label, p.Action.URL)))
		opt.ReplyMarkup = rm
	}

	// telebot has no context support; the client timeout bounds the call.
	if _, err := s.bot.Send(s.chat, renderHTML(p), opt); err != nil {
		de := &sink.DeliveryError{Sink: name, EventID: p.EventID, Err: err}
		var te *tele.Error
		if errors.As(err, &te) {
			de.Status = te.Code
			de.Body = te.Description
		}
		return de
	}
	s.log.Debug("notification delivered", logx.Int64("event_id", p.EventID))
	return nil
}

// Telegram counts 4096 UTF-16 units of visible text; runes undercount astral
// characters, hence the margin.
const maxMessageText = 4000

func renderHTML(p notify.Payload) string {
	fields := fitFields(p, maxMessageText)
	var b strings.Builder
	if !p.Header.Empty() {
		b.WriteString("<b>")
		if g, ok := glyphs[p.Header.Icon]; ok {
			b.WriteString(g)
			b.WriteString(" ")
		}
		b.WriteString(html.EscapeString(p.Header.Label))
		b.WriteString("</b>\n")
	}
	for _, f := range fields {
		b.WriteString("<b>")
		b.WriteString(html.EscapeString(f.Title))
		b.WriteString(":</b> ")
		b.WriteString(html.EscapeString(f.Value))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// fitFields shortens the longest values until the visible text of the
// message fits in limit runes.
func fitFields(p notify.Payload, limit int) []notify.Field {
	visible := utf8.RuneCountInString(p.Header.Label) + 2
	for _, f := range p.Fields {
		visible += utf8.RuneCountInString(f.Title) + 3 + utf8.RuneCountInString(f.Value)
	}
	if visible <= limit {
		return p.Fields
	}

	out := append([]notify.Field(nil), p.Fields...)
	for visible > limit {
		longest := -1
		for i, f := range out {
			if longest < 0 || utf8.RuneCountInString(f.Value) > utf8.RuneCountInString(out[longest].Value) {
				longest = i
			}
		}
		n := utf8.RuneCountInString(out[longest].Value)
		if n == 0 {
			break
		}
		keep := max(n-(visible-limit), 0)
		out[longest].Value = notify.Truncate(out[longest].Value, keep)
		visible -= n - utf8.RuneCountInString(out[longest].Value)
	}
	return out
}
