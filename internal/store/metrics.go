package store

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for store operations.
const (
	opLoad = "load"
	opSave = "save"
)

var storeErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "capsule_store_errors_total",
		Help: "Total number of record store failures swallowed by the best-effort wrapper.",
	},
	[]string{"op"},
)

func init() {
	prometheus.MustRegister(storeErrorsTotal)

	storeErrorsTotal.WithLabelValues(opLoad)
	storeErrorsTotal.WithLabelValues(opSave)
}
