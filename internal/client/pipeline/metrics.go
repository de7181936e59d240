package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	sourceNetwork = "network"
	sourceCache   = "cache"
	sourceMiss    = "miss"
)

var (
	cacheReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pocketlend",
			Subsystem: "pipeline",
			Name:      "cache_reads_total",
			Help:      "Cache-enabled reads by where the answer came from.",
		},
		[]string{"source"},
	)

	queuedWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pocketlend",
			Subsystem: "pipeline",
			Name:      "queued_writes_total",
			Help:      "Writes deferred instead of sent, by reason.",
		},
		[]string{"reason"},
	)
)
