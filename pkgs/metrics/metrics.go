// Package metrics exports Prometheus metrics for shell executions.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/engine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts executions of the sessions attached to it. Each recorder
// owns its registry, so several can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inflight   prometheus.Gauge
	sessions   prometheus.Gauge
	notices    *prometheus.CounterVec
}

// New creates a recorder. withProcess adds the Go runtime and process
// collectors.
func New(withProcess bool) *Recorder {
	reg := prometheus.NewRegistry()
	if withProcess {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeshell_executions_total",
				Help: "Completed executions by last command and exit code",
			},
			[]string{"command", "exit"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeshell_execution_duration_seconds",
				Help:    "Wall time from submission to completion",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"command"},
		),
		inflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeshell_executions_inflight",
				Help: "Executions currently running",
			},
		),
		sessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeshell_sessions_attached",
				Help: "Sessions reporting to this recorder",
			},
		),
		notices: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeshell_notices_total",
				Help: "Notices emitted by level",
			},
			[]string{"level"},
		),
	}
}

// Registry returns the registry the recorder's metrics live in.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Attach records the executions s runs from now on.
func (r *Recorder) Attach(s *engine.Session) (detach func()) {
	var mu sync.Mutex
	started := make(map[uint64]time.Time)

	r.sessions.Inc()
	unsubscribe := s.Subscribe(func(ev engine.Event) {
		switch ev.Kind {
		case engine.EventStarted:
			mu.Lock()
			started[ev.ExecutionID] = ev.Time
			mu.Unlock()
			r.inflight.Inc()

		case engine.EventNotice:
			r.notices.WithLabelValues(ev.Level.String()).Inc()

		case engine.EventCompleted:
			mu.Lock()
			at, ok := started[ev.ExecutionID]
			delete(started, ev.ExecutionID)
			mu.Unlock()
			if !ok || ev.Summary == nil {
				return
			}
			r.inflight.Dec()
			r.executions.WithLabelValues(ev.Summary.Command, strconv.Itoa(ev.Summary.Exit.Code)).Inc()
			r.duration.WithLabelValues(ev.Summary.Command).Observe(ev.Time.Sub(at).Seconds())
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			r.sessions.Dec()
		})
	}
}
