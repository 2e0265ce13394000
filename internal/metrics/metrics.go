// Package metrics holds the Prometheus collectors shared by the SDK core.
// They register on the default registry, which the daemon exposes at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons for inbound messages.
const (
	DropEmpty       = "empty"
	DropMalformed   = "malformed"
	DropOrigin      = "origin"
	DropInstance    = "instance"
	DropUnknownType = "unknown_type"
	DropVersion     = "version"
	DropDetached    = "detached"
)

// Poll outcomes.
const (
	PollError    = "error"
	PollPending  = "pending"
	PollReleased = "released"
	PollFailed   = "failed"
)

var (
	EventsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "events",
			Name:      "dispatched_total",
			Help:      "Events dispatched to the listener registry",
		},
		[]string{"type"},
	)

	HandlerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "events",
			Name:      "handler_failures_total",
			Help:      "Listener invocations that returned an error or panicked",
		},
		[]string{"type"},
	)

	MessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "messages",
			Name:      "dropped_total",
			Help:      "Inbound widget messages dropped before dispatch",
		},
		[]string{"reason"},
	)

	PollRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "poller",
			Name:      "requests_total",
			Help:      "Status fetches issued by the poller, by outcome",
		},
		[]string{"outcome"},
	)

	PollersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "checkout",
			Subsystem: "poller",
			Name:      "active",
			Help:      "Status polling loops currently running",
		},
	)

	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checkout",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Visibility state transitions",
		},
		[]string{"state", "mode"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsDispatched,
		HandlerFailures,
		MessagesDropped,
		PollRequests,
		PollersActive,
		SessionTransitions,
	)
}
