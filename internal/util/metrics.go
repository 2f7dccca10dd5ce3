package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Total number of applied cart mutations",
	}, []string{"operation"})

	StockConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_conflicts_total",
		Help: "Total number of changes rejected for lack of stock",
	}, []string{"source"})

	BundlesCommittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bundles_committed_total",
		Help: "Total number of committed bundles",
	}, []string{"size"})

	BundleCommitsReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bundle_commits_replayed_total",
		Help: "Total number of bundle commits answered from an idempotency key",
	})

	GiftCertificatesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gift_certificates_added_total",
		Help: "Total number of gift certificates added to carts",
	})

	SinglesClampedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "singles_clamped_total",
		Help: "Total number of single quantities clamped after a stock change",
	})

	BundlesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bundles_dropped_total",
		Help: "Total number of restored packs dropped because stock no longer covers them",
	})

	CartMutationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_mutation_latency_seconds",
		Help:    "Latency of cart mutations including totals recomputation and persistence",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	PersistedRecordsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persisted_records_recovered_total",
		Help: "Total number of malformed persisted records replaced by defaults",
	}, []string{"record"})

	RecordCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "record_cache_requests_total",
		Help: "Total number of record cache lookups",
	}, []string{"result"})

	RestockNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restock_notifications_total",
		Help: "Total number of restock notifications published",
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of domain events published",
	}, []string{"event_type", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
