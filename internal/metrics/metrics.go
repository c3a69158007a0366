package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serverStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "videospace",
			Subsystem: "supervisor",
			Name:      "starts_total",
			Help:      "Number of successful server process spawns.",
		}, []string{"name"},
	)
	serverStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "videospace",
			Subsystem: "supervisor",
			Name:      "stops_total",
			Help:      "Number of Running to Stopped transitions, including failed terminations.",
		}, []string{"name"},
	)
	spawnFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "videospace",
			Subsystem: "supervisor",
			Name:      "spawn_failures_total",
			Help:      "Number of times the OS refused to create the server process.",
		}, []string{"name"},
	)
	terminationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "videospace",
			Subsystem: "supervisor",
			Name:      "termination_failures_total",
			Help:      "Number of times the OS refused to terminate the server process.",
		}, []string{"name"},
	)
	serverRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "videospace",
			Subsystem: "supervisor",
			Name:      "running",
			Help:      "Last known supervisor state (1 = running, 0 = stopped).",
		}, []string{"name"},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "videospace",
			Name:      "commands_total",
			Help:      "Host commands handled, by command and result.",
		}, []string{"command", "result"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "videospace",
			Name:      "command_duration_seconds",
			Help:      "Time spent handling host commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serverStarts, serverStops, spawnFailures, terminationFailures, serverRunning, commandsTotal, commandDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// Already registered with the default registry: keep the existing one.
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// NewServer returns an HTTP server exposing /metrics on addr. The caller starts it.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStart(name string) {
	if regOK.Load() {
		serverStarts.WithLabelValues(name).Inc()
		serverRunning.WithLabelValues(name).Set(1)
	}
}

func IncStop(name string) {
	if regOK.Load() {
		serverStops.WithLabelValues(name).Inc()
		serverRunning.WithLabelValues(name).Set(0)
	}
}

func IncSpawnFailure(name string) {
	if regOK.Load() {
		spawnFailures.WithLabelValues(name).Inc()
	}
}

func IncTerminationFailure(name string) {
	if regOK.Load() {
		terminationFailures.WithLabelValues(name).Inc()
	}
}

// ObserveCommand records one handled command. err decides the result label.
func ObserveCommand(command string, started time.Time, err error) {
	if !regOK.Load() {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	commandsTotal.WithLabelValues(command, result).Inc()
	commandDuration.WithLabelValues(command).Observe(time.Since(started).Seconds())
}
