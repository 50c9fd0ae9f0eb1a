package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "readshelf"

func newBreakerStateGauge() *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"operation"},
	)
}

func setBreakerState(gauge *prometheus.GaugeVec, operation, state string) {
	value := 0.0
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	gauge.WithLabelValues(operation).Set(value)
}
