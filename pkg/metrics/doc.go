/*
Package metrics provides Prometheus instrumentation for a kvlog dict:
get/set/delete/not-found counters, a busy gauge flipped for the
duration of each catch-up cycle, a catch-up duration histogram, an
approximate local-key-count gauge, and a consumer-lag gauge.

Unlike a single long-lived cluster node, a process embedding kvlog may
construct several Dict instances — every cross-instance test in
pkg/dict does exactly that — so metrics are not package-level
prometheus.MustRegister calls at init time. Recorder bundles one
instance's metrics and registers them against whatever
prometheus.Registerer it's given, defaulting to a private registry
when none is supplied.

# Catalog

	kvlog_gets_total                Counter    Get calls
	kvlog_sets_total                Counter    Set calls
	kvlog_deletes_total             Counter    Delete calls
	kvlog_not_found_total           Counter    Get calls that found nothing
	kvlog_catchups_total            Counter    catch-up cycles run
	kvlog_catchup_duration_seconds  Histogram  wall-clock time per catch-up
	kvlog_busy                      Gauge      1 while inside a catch-up cycle
	kvlog_local_store_keys          Gauge      approximate key count in the local view
	kvlog_consumer_lag              Gauge      watermark minus applied offset (registered; pkg/dict never sets it, so it stays 0)

# Usage

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)
	rec.Gets.Inc()
	timer := metrics.NewTimer()
	// ... run catch-up ...
	timer.ObserveDuration(rec.CatchupDuration)
	http.Handle("/metrics", metrics.Handler(reg))

RegisterComponent/GetHealth (health.go) are unrelated to Prometheus:
they back a small checker kvlog's serve command uses for /health and
/ready, with "broker" and "store" as the critical components instead
of the orchestrator's raft/containerd/api set.
*/
package metrics
