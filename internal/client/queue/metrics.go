package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSynced   = "synced"
	resultRejected = "rejected"
	resultRetry    = "retry"
)

var (
	enqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pocketlend",
			Subsystem: "queue",
			Name:      "enqueued_total",
			Help:      "Writes deferred to the queue.",
		},
	)

	replayedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pocketlend",
			Subsystem: "queue",
			Name:      "replayed_total",
			Help:      "Replay attempts by outcome.",
		},
		[]string{"result"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pocketlend",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Operations waiting for replay.",
		},
	)
)
