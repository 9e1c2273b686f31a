package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steno",
		Name:      "events_ingested_total",
		Help:      "Recorded events admitted into a session, by kind and transport.",
	}, []string{"kind", "transport"})

	metricAdmissionRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steno",
		Name:      "admission_rejects_total",
		Help:      "Events rejected by session admission control, by transport.",
	}, []string{"transport"})

	metricActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "steno",
		Name:      "agent_connections_active",
		Help:      "Currently connected capture agents.",
	})

	metricCommandDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "steno",
		Name:      "command_backpressure_drops_total",
		Help:      "Server-to-agent commands dropped because the send buffer was full.",
	})

	metricGenerationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "steno",
		Name:      "generation_duration_seconds",
		Help:      "Wall time of code generation requests.",
		Buckets:   prometheus.DefBuckets,
	})
)
