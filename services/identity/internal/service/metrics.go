package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth event outcomes.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeError   = "error"
)

var authEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "identity_auth_events_total",
		Help: "Authentication operations by event and outcome.",
	},
	[]string{"event", "outcome"},
)

func recordAuthEvent(event, outcome string) {
	authEventsTotal.WithLabelValues(event, outcome).Inc()
}
