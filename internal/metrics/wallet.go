// Package metrics exposes application metrics collectors.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	walletOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "axewallet",
		Subsystem: "wallet",
		Name:      "operations_total",
		Help:      "Count of wallet operations such as sign, save and load.",
	}, []string{"operation", "network", "status"})

	walletOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "axewallet",
		Subsystem: "wallet",
		Name:      "operation_duration_seconds",
		Help:      "Duration of wallet operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "network", "status"})

	walletTxInputs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "axewallet",
		Subsystem: "wallet",
		Name:      "tx_inputs",
		Help:      "Number of inputs per signed transaction.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8), // 1..128
	}, []string{"network"})

	walletTxFee = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "axewallet",
		Subsystem: "wallet",
		Name:      "tx_fee_satoshis",
		Help:      "Estimated fee of signed transactions.",
		Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
	}, []string{"network"})

	walletBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "axewallet",
		Subsystem: "wallet",
		Name:      "balance_satoshis",
		Help:      "Last observed combined balance of the session wallet.",
	}, []string{"network"})
)

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Wallet tracks metrics for wallet session operations.
type Wallet struct {
	network string
}

// NewWallet constructs a Wallet collector with sane defaults.
func NewWallet(network string) *Wallet {
	if network == "" {
		network = "unknown"
	}
	return &Wallet{network: network}
}

// Observe records an operation outcome and duration.
func (m Wallet) Observe(operation string, err error, started time.Time) {
	status := statusOf(err)
	walletOperationsTotal.WithLabelValues(operation, m.network, status).Inc()
	walletOperationDuration.WithLabelValues(operation, m.network, status).
		Observe(time.Since(started).Seconds())
}

// ObserveSigned records the shape of a transaction that was signed.
func (m Wallet) ObserveSigned(inputs int, fee uint64) {
	walletTxInputs.WithLabelValues(m.network).Observe(float64(inputs))
	walletTxFee.WithLabelValues(m.network).Observe(float64(fee))
}

// ObserveBalance records the latest combined balance.
func (m Wallet) ObserveBalance(satoshis uint64) {
	walletBalance.WithLabelValues(m.network).Set(float64(satoshis))
}
