package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "axewallet",
		Subsystem: "indexer_client",
		Name:      "operations_total",
		Help:      "Count of indexer API operations.",
	}, []string{"operation", "network", "status"})
	indexerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "axewallet",
		Subsystem: "indexer_client",
		Name:      "operation_duration_seconds",
		Help:      "Duration of indexer API operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "network", "status"})
)

// IndexerClient tracks metrics for HTTP calls to the indexer API.
type IndexerClient struct {
	network string
}

// NewIndexerClient constructs a metrics collector for indexer calls.
func NewIndexerClient(network string) *IndexerClient {
	if network == "" {
		network = "unknown"
	}
	return &IndexerClient{network: network}
}

// Observe records a single API call outcome and duration.
func (m IndexerClient) Observe(operation string, err error, started time.Time) {
	status := statusOf(err)
	indexerRequestsTotal.WithLabelValues(operation, m.network, status).Inc()
	indexerRequestDuration.WithLabelValues(operation, m.network, status).Observe(time.Since(started).Seconds())
}
