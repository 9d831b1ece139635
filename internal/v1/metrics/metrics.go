package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the chat server.
//
// Naming convention: namespace_subsystem_name
// - namespace: secirc
// - subsystem: connection, room, command, auth
var (
	// ActiveConnections tracks the current number of live TCP connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "secirc",
		Subsystem: "connection",
		Name:      "active",
		Help:      "Current number of active client connections",
	})

	// ActiveRooms tracks the current number of rooms with members.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "secirc",
		Subsystem: "room",
		Name:      "active",
		Help:      "Current number of rooms with at least one member",
	})

	// CommandsTotal counts dispatched commands by verb and outcome.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "secirc",
		Subsystem: "command",
		Name:      "total",
		Help:      "Total commands dispatched",
	}, []string{"command", "status"})

	// CommandDuration tracks handler latency by verb.
	CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "secirc",
		Subsystem: "command",
		Name:      "duration_seconds",
		Help:      "Time spent handling commands",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
	}, []string{"command"})

	// AuthFailuresTotal counts failed AUTH attempts.
	AuthFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "secirc",
		Subsystem: "auth",
		Name:      "failures_total",
		Help:      "Total failed authentication attempts",
	})

	// RateLimitedTotal counts lines rejected by the per-connection limiter.
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "secirc",
		Subsystem: "connection",
		Name:      "rate_limited_total",
		Help:      "Total inbound lines rejected by the rate limiter",
	})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
