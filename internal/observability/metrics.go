package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the indexer.
type Metrics struct {
	// --- Engine ---
	EventsApplied   *prometheus.CounterVec
	EventsSkipped   *prometheus.CounterVec
	EventsDuplicate *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
	TradesRecorded  prometheus.Counter
	Liquidations    prometheus.Counter
	MarketsWatched  prometheus.Gauge

	// --- Store ---
	StoreUpserts   prometheus.Counter
	StoreUpsertDur prometheus.Histogram

	// --- Ingestion ---
	IngestReceived   *prometheus.CounterVec
	IngestParseErrs  *prometheus.CounterVec
	IngestOutOfOrder *prometheus.CounterVec
	IngestLag        prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	handlerBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01, 0.025,
	}

	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "futures_engine_events_applied_total",
			Help: "Events handled to completion, by event type.",
		}, []string{"event_type"}),
		EventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "futures_engine_events_skipped_total",
			Help: "Malformed events logged and skipped, by event type.",
		}, []string{"event_type"}),
		EventsDuplicate: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "futures_engine_events_duplicate_total",
			Help: "Redelivered events ignored by the processed marker, by event type.",
		}, []string{"event_type"}),
		HandlerDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "futures_engine_handler_duration_seconds",
			Help:    "Per-event handler latency, by event type.",
			Buckets: handlerBuckets,
		}, []string{"event_type"}),
		TradesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "futures_engine_trades_recorded_total",
			Help: "Trade entities recorded.",
		}),
		Liquidations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "futures_engine_liquidations_total",
			Help: "PositionLiquidated events processed.",
		}),
		MarketsWatched: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "futures_engine_markets_watched",
			Help: "Market addresses dynamically registered as event sources.",
		}),
		StoreUpserts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "futures_store_upserts_total",
			Help: "Entity upserts flushed to the store.",
		}),
		StoreUpsertDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "futures_store_upsert_duration_seconds",
			Help:    "Store upsert latency.",
			Buckets: handlerBuckets,
		}),
		IngestReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "futures_ingest_received_total",
			Help: "Raw messages received from NATS, by subject family.",
		}, []string{"family"}),
		IngestParseErrs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "futures_ingest_parse_errors_total",
			Help: "Messages that failed to decode, by subject family.",
		}, []string{"family"}),
		IngestOutOfOrder: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "futures_ingest_out_of_order_total",
			Help: "Events whose source sequence moved backward, by subject family.",
		}, []string{"family"}),
		IngestLag: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "futures_ingest_lag_seconds",
			Help:    "Delay between block timestamp and local processing.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}
