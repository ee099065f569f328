// Package sink defines the delivery side of the relay: something that takes a
// formatted notification and hands it to a chat service.
package sink

import (
	"context"

	"linotify/internal/notify"
)

// Sink delivers one notification. Send returns only after the remote side has
// accepted the message; a nil error means "delivered".
type Sink interface {
	Name() string
	Send(ctx context.Context, p notify.Payload) error
}

// Func adapts a function to Sink. Handy for tests and dry runs.
type Func func(ctx context.Context, p notify.Payload) error

func (f Func) Name() string { return "func" }

func (f Func) Send(ctx context.Context, p notify.Payload) error { return f(ctx, p) }
