package relay

import (
	"fmt"
	"strings"
	"time"

	logx "linotify/pkg/logx"
)

// Order decides whether an event is recorded before or after it is sent.
type Order int

const (
	// DeliverFirst sends, then records on success. A crash between the two
	// re-sends the event on the next run (at-least-once).
	DeliverFirst Order = iota
	// RecordFirst records, then sends. A failed send is never retried
	// (at-most-once).
	RecordFirst
)

func (o Order) String() string {
	if o == RecordFirst {
		return "record-first"
	}
	return "deliver-first"
}

// ParseOrder accepts "deliver-first" (default when empty) and "record-first".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "deliver-first":
		return DeliverFirst, nil
	case "record-first":
		return RecordFirst, nil
	default:
		return DeliverFirst, fmt.Errorf("relay: unknown delivery order %q", s)
	}
}

// Metrics receives run and event counters. *metrics.Prometheus satisfies it.
type Metrics interface {
	RunFinished(result string, d time.Duration)
	EventsFetched(n int)
	EventSkipped()
	EventDelivered()
}

type nopMetrics struct{}

func (nopMetrics) RunFinished(string, time.Duration) {}
func (nopMetrics) EventsFetched(int)                 {}
func (nopMetrics) EventSkipped()                     {}
func (nopMetrics) EventDelivered()                   {}

type Option func(*Relay)

func WithLogger(log logx.Logger) Option {
	return func(r *Relay) { r.log = log }
}

func WithMetrics(m Metrics) Option {
	return func(r *Relay) {
		if m != nil {
			r.metrics = m
		}
	}
}

func WithOrder(o Order) Option {
	return func(r *Relay) { r.order = o }
}
