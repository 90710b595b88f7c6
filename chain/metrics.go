package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var adminTxTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "guardian_sdk",
		Name:      "admin_transactions_total",
		Help:      "Owner-signed admin transactions by method and outcome.",
	},
	[]string{"method", "outcome"},
)
