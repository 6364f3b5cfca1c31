// grbwatch/metrics/metrics.go
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grbwatch"

// Cycle is the outcome of one update cycle as seen by the recorder.
type Cycle struct {
	Fetched  int
	New      int
	Notified int
	Skipped  int
	Stored   int
	Err      error
}

// Recorder owns a private registry so the run-once mode can dump exactly the
// grbwatch series to a textfile collector. A nil *Recorder discards everything.
type Recorder struct {
	Registry *prometheus.Registry

	cycles      *prometheus.CounterVec
	fetched     prometheus.Counter
	newAlerts   prometheus.Counter
	notified    prometheus.Counter
	duplicates  prometheus.Counter
	notifyFails prometheus.Counter
	stored      prometheus.Gauge
	lastSuccess prometheus.Gauge
	duration    prometheus.Summary
}

func New() *Recorder {
	r := &Recorder{Registry: prometheus.NewRegistry()}
	r.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "update_cycles_total",
		Help:      "Update cycles run, by result",
	}, []string{"result"})
	r.fetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_fetched_total",
		Help:      "Alert rows read from the listing page",
	})
	r.newAlerts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_new_total",
		Help:      "Alerts whose trigger id was not in the event store",
	})
	r.notified = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Alert summaries posted to chat",
	})
	r.duplicates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicate_triggers_skipped_total",
		Help:      "New trigger ids matching more than one fetched row",
	})
	r.notifyFails = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Cycles aborted by a failed chat post",
	})
	r.stored = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stored_alerts",
		Help:      "Alerts in the event store after the last successful cycle",
	})
	r.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful cycle",
	})
	r.duration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "update_duration_seconds",
		Help:      "Time spent in one update cycle",
	})

	r.Registry.MustRegister(r.cycles, r.fetched, r.newAlerts, r.notified,
		r.duplicates, r.notifyFails, r.stored, r.lastSuccess, r.duration)
	return r
}

// ObserveCycle records one finished cycle.
func (r *Recorder) ObserveCycle(c Cycle, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.duration.Observe(elapsed.Seconds())
	r.fetched.Add(float64(c.Fetched))
	r.newAlerts.Add(float64(c.New))
	r.notified.Add(float64(c.Notified))
	r.duplicates.Add(float64(c.Skipped))
	if c.Err != nil {
		r.cycles.WithLabelValues("error").Inc()
		return
	}
	r.cycles.WithLabelValues("ok").Inc()
	r.stored.Set(float64(c.Stored))
	r.lastSuccess.Set(float64(time.Now().Unix()))
}

// NotificationFailed counts a cycle aborted by a chat post.
func (r *Recorder) NotificationFailed() {
	if r == nil {
		return
	}
	r.notifyFails.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
