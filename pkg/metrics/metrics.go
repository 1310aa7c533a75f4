package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds one dict instance's metrics. kvlog instantiates more
// than one Dict in the same process — every multi-instance test in
// pkg/dict does — so each Recorder owns its own prometheus.Registerer,
// by default a private prometheus.Registry, instead of colliding on
// global metric names registered once at package init.
type Recorder struct {
	registry prometheus.Registerer

	Gets      prometheus.Counter
	Sets      prometheus.Counter
	Deletes   prometheus.Counter
	NotFound  prometheus.Counter
	Catchups  prometheus.Counter
	Busy      prometheus.Gauge
	LocalKeys prometheus.Gauge

	CatchupDuration prometheus.Histogram
	ConsumerLag     prometheus.Gauge
}

// NewRecorder builds and registers a full set of kvlog metrics against
// reg. Passing nil registers against a fresh, private registry, so
// tests can construct many Recorders without name collisions; serving
// applications should pass prometheus.DefaultRegisterer to expose
// kvlog's metrics alongside the rest of the process's.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		registry: reg,
		Gets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvlog_gets_total",
			Help: "Total number of Get calls.",
		}),
		Sets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvlog_sets_total",
			Help: "Total number of Set calls.",
		}),
		Deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvlog_deletes_total",
			Help: "Total number of Delete calls.",
		}),
		NotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvlog_not_found_total",
			Help: "Total number of Get calls that found no value for the key.",
		}),
		Catchups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kvlog_catchups_total",
			Help: "Total number of catch-up cycles run against the log.",
		}),
		Busy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvlog_busy",
			Help: "Whether this instance is currently inside a catch-up cycle (1) or idle (0).",
		}),
		LocalKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvlog_local_store_keys",
			Help: "Approximate number of keys held in the local materialized view.",
		}),
		CatchupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kvlog_catchup_duration_seconds",
			Help:    "Wall-clock duration of each catch-up cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		ConsumerLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kvlog_consumer_lag",
			Help: "Difference between the log's high watermark and this instance's last applied offset, as of the most recent catch-up.",
		}),
	}

	reg.MustRegister(
		r.Gets, r.Sets, r.Deletes, r.NotFound, r.Catchups,
		r.Busy, r.LocalKeys, r.CatchupDuration, r.ConsumerLag,
	)
	return r
}

// Handler exposes the metrics registered against reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
