package transport

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "guardian_sdk",
			Name:      "http_attempts_total",
			Help:      "HTTP attempts against the Guardian API by response class.",
		},
		[]string{"method", "class"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "guardian_sdk",
			Name:      "http_retries_total",
			Help:      "Retries scheduled after a transient failure.",
		},
		[]string{"reason"},
	)

	refreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "guardian_sdk",
			Name:      "token_refreshes_total",
			Help:      "Token refresh calls made to the Guardian API.",
		},
		[]string{"result"},
	)
)

// statusClass maps a status code to a low-cardinality label such as "2xx".
// Zero means no response was received.
func statusClass(status int) string {
	if status == 0 {
		return "network"
	}
	return strconv.Itoa(status/100) + "xx"
}
