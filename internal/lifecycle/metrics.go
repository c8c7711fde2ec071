package lifecycle

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for callback outcomes.
const (
	outcomeAccepted   = "accepted"
	outcomeBadRequest = "bad_request"
	outcomeForbidden  = "forbidden"
)

var (
	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capsule_callbacks_total",
			Help: "Total number of worker status callbacks by outcome.",
		},
		[]string{"outcome"},
	)

	recordsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "capsule_records",
			Help: "Number of worker records seen at the last store read.",
		},
	)
)

func init() {
	prometheus.MustRegister(callbacksTotal)
	prometheus.MustRegister(recordsGauge)

	for _, o := range []string{outcomeAccepted, outcomeBadRequest, outcomeForbidden} {
		callbacksTotal.WithLabelValues(o)
	}
}
