package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PayloadsTotal counts progress payloads by outcome.
	PayloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tracking",
		Name:      "payloads_total",
		Help:      "Progress sync payloads received, by outcome.",
	}, []string{"outcome"})

	// ContentLoadedTotal counts content-loaded notifications.
	ContentLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracking",
		Name:      "content_loaded_total",
		Help:      "Content-loaded notifications received.",
	})

	// TimeExpiredTotal counts time-expired notifications.
	TimeExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tracking",
		Name:      "time_expired_total",
		Help:      "Time-expired notifications received.",
	})

	// LiveSubscribers tracks connected dashboard websockets.
	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tracking",
		Name:      "live_subscribers",
		Help:      "Currently connected live dashboard subscribers.",
	})
)

// Outcome labels for PayloadsTotal.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)
