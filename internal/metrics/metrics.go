// Package metrics exposes relay counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linotify"

// Run results used as the "result" label.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultOverlap = "overlap"
)

// Prometheus records relay activity on a private registry, so several
// instances (tests, embedded use) never collide on the global one.
type Prometheus struct {
	reg *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	fetched       prometheus.Counter
	skipped       prometheus.Counter
	delivered     prometheus.Counter
	lastSuccessTS prometheus.Gauge
}

func New() *Prometheus {
	p := &Prometheus{reg: prometheus.NewRegistry()}
	p.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Poll cycles by result",
	}, []string{"result"})
	p.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Time spent in one poll cycle",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	p.fetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_fetched_total",
		Help:      "Events returned by the account events endpoint",
	})
	p.skipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_skipped_total",
		Help:      "Events already present in the ledger",
	})
	p.delivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_delivered_total",
		Help:      "Notifications accepted by the sink and recorded",
	})
	p.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful poll cycle",
	})

	p.reg.MustRegister(
		p.runs, p.runDuration, p.fetched, p.skipped, p.delivered, p.lastSuccessTS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) RunFinished(result string, d time.Duration) {
	p.runs.WithLabelValues(result).Inc()
	if result == ResultOverlap {
		return
	}
	p.runDuration.Observe(d.Seconds())
	if result == ResultOK {
		p.lastSuccessTS.SetToCurrentTime()
	}
}

func (p *Prometheus) EventsFetched(n int) { p.fetched.Add(float64(n)) }
func (p *Prometheus) EventSkipped()       { p.skipped.Inc() }
func (p *Prometheus) EventDelivered()     { p.delivered.Inc() }

// Registry is exposed for tests and for callers adding their own collectors.
func (p *Prometheus) Registry() *prometheus.Registry { return p.reg }

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}
