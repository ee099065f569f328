// Package relay runs one poll cycle: fetch the account events, skip the ones
// already in the ledger, and deliver and record the rest in fetch order.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"linotify/internal/event"
	"linotify/internal/metrics"
	"linotify/internal/notify"
	"linotify/internal/sink"
	logx "linotify/pkg/logx"
)

// ErrRunInProgress is returned when Run is called while another run of the
// same Relay has not finished.
var ErrRunInProgress = errors.New("relay: run already in progress")

// Source yields the current batch of events.
type Source interface {
	Fetch(ctx context.Context) ([]event.Record, error)
}

// Ledger is the part of storage.Ledger the relay needs.
type Ledger interface {
	EnsureSchema(ctx context.Context) error
	HasSeen(ctx context.Context, id int64) (bool, error)
	Record(ctx context.Context, r event.Record) error
}

// Summary describes one finished (or aborted) run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Fetched   int           `json:"fetched"`
	Skipped   int           `json:"skipped"`
	Delivered int           `json:"delivered"`
}

// Result is the outcome of the most recent run.
type Result struct {
	Summary Summary
	Err     error
}

type Relay struct {
	ledger Ledger
	src    Source
	sink   sink.Sink

	order   Order
	log     logx.Logger
	metrics Metrics

	mu   sync.Mutex
	last atomic.Pointer[Result]
}

func New(ledger Ledger, src Source, s sink.Sink, opts ...Option) *Relay {
	r := &Relay{
		ledger:  ledger,
		src:     src,
		sink:    s,
		metrics: nopMetrics{},
	}
	for _, o := range opts {
		o(r)
	}
	r.log = r.log.With(logx.String("comp", "relay"))
	return r
}

// Run executes one poll cycle. The first failure aborts the remaining
// events; everything recorded before it stays recorded.
func (r *Relay) Run(ctx context.Context) (Summary, error) {
	if !r.mu.TryLock() {
		r.metrics.RunFinished(metrics.ResultOverlap, 0)
		return Summary{}, ErrRunInProgress
	}
	defer r.mu.Unlock()

	sum := Summary{RunID: uuid.NewString(), Started: time.Now()}
	log := r.log.With(logx.String("run_id", sum.RunID))
	log.Debug("run started", logx.String("order", r.order.String()), logx.String("sink", r.sink.Name()))

	err := r.run(ctx, log, &sum)
	sum.Duration = time.Since(sum.Started)
	r.last.Store(&Result{Summary: sum, Err: err})

	fields := []logx.Field{
		logx.Int("fetched", sum.Fetched),
		logx.Int("skipped", sum.Skipped),
		logx.Int("delivered", sum.Delivered),
		logx.Duration("took", sum.Duration),
	}
	if err != nil {
		r.metrics.RunFinished(metrics.ResultError, sum.Duration)
		log.Error("run failed", append(fields, logx.Err(err))...)
		return sum, err
	}
	r.metrics.RunFinished(metrics.ResultOK, sum.Duration)
	log.Info("run finished", fields...)
	return sum, nil
}

// LastResult returns the outcome of the most recent run, if any.
func (r *Relay) LastResult() (Result, bool) {
	p := r.last.Load()
	if p == nil {
		return Result{}, false
	}
	return *p, true
}

func (r *Relay) run(ctx context.Context, log logx.Logger, sum *Summary) error {
	if err := r.ledger.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	records, err := r.src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	sum.Fetched = len(records)
	r.metrics.EventsFetched(len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen, err := r.ledger.HasSeen(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("event %d: %w", rec.ID, err)
		}
		if seen {
			sum.Skipped++
			r.metrics.EventSkipped()
			continue
		}
		if err := r.deliver(ctx, rec); err != nil {
			return fmt.Errorf("event %d: %w", rec.ID, err)
		}
		sum.Delivered++
		r.metrics.EventDelivered()
		log.Debug("event delivered",
			logx.Int64("event_id", rec.ID),
			logx.String("action", rec.Action),
			logx.String("status", rec.RawStatus),
		)
	}
	return nil
}

func (r *Relay) deliver(ctx context.Context, rec event.Record) error {
	p := notify.Format(rec)
	if r.order == RecordFirst {
		if err := r.ledger.Record(ctx, rec); err != nil {
			return err
		}
		return r.sink.Send(ctx, p)
	}
	if err := r.sink.Send(ctx, p); err != nil {
		return err
	}
	return r.ledger.Record(ctx, rec)
}
