// Package metrics exposes Prometheus counters for the ledger, the reminder
// scheduler and chat handlers. Every method is safe on a nil *Recorder.
package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studiobot"

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Recorder implements the ledger and scheduler instrumentation hooks on
// top of a Prometheus registry.
type Recorder struct {
	once          sync.Once
	reg           *prom.Registry
	ledgerOps     *prom.CounterVec
	ledgerLoads   *prom.CounterVec
	ledgerIO      *prom.HistogramVec
	notifications *prom.CounterVec
	ticks         *prom.CounterVec
	handled       *prom.CounterVec
	handlerTime   *prom.HistogramVec
}

// NewRecorder registers the collectors on reg, or on a fresh registry when
// reg is nil.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{reg: reg}
	r.once.Do(func() {
		r.ledgerOps = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Pack operations by operation and result",
		}, []string{"op", "result"})
		r.ledgerLoads = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_loads_total",
			Help:      "Ledger document loads by outcome",
		}, []string{"outcome"})
		r.ledgerIO = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_io_duration_seconds",
			Help:      "Duration of ledger document reads and writes",
			Buckets:   prom.DefBuckets,
		}, []string{"action"})
		r.notifications = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Administrator notifications by kind and result",
		}, []string{"kind", "result"})
		r.ticks = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler wake-ups by outcome",
		}, []string{"outcome"})
		r.handled = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "handled_updates_total",
			Help:      "Chat updates handled by handler and status",
		}, []string{"handler", "status"})
		r.handlerTime = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Chat handler duration",
			Buckets:   prom.DefBuckets,
		}, []string{"handler"})
		reg.MustRegister(r.ledgerOps, r.ledgerLoads, r.ledgerIO, r.notifications, r.ticks, r.handled, r.handlerTime)
	})
	return r
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prom.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.reg == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveLoad records one ledger read.
func (r *Recorder) ObserveLoad(outcome string, d time.Duration) {
	if r == nil || r.ledgerLoads == nil {
		return
	}
	r.ledgerLoads.WithLabelValues(outcome).Inc()
	r.ledgerIO.WithLabelValues("load").Observe(d.Seconds())
}

// ObserveSave records one ledger write.
func (r *Recorder) ObserveSave(err error, d time.Duration) {
	if r == nil || r.ledgerIO == nil {
		return
	}
	action := "save"
	if err != nil {
		action = "save_failed"
	}
	r.ledgerIO.WithLabelValues(action).Observe(d.Seconds())
}

// IncOperation counts one pack operation.
func (r *Recorder) IncOperation(op string, err error) {
	if r == nil || r.ledgerOps == nil {
		return
	}
	r.ledgerOps.WithLabelValues(op, result(err)).Inc()
}

// IncNotification counts one reminder or report delivery attempt.
func (r *Recorder) IncNotification(kind string, err error) {
	if r == nil || r.notifications == nil {
		return
	}
	r.notifications.WithLabelValues(kind, result(err)).Inc()
}

// IncTick counts one scheduler wake-up.
func (r *Recorder) IncTick(outcome string) {
	if r == nil || r.ticks == nil {
		return
	}
	r.ticks.WithLabelValues(outcome).Inc()
}

// ObserveHandler records one handled chat update.
func (r *Recorder) ObserveHandler(handler, status string, d time.Duration) {
	if r == nil || r.handled == nil {
		return
	}
	r.handled.WithLabelValues(handler, status).Inc()
	r.handlerTime.WithLabelValues(handler).Observe(d.Seconds())
}
