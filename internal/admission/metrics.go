package admission

import "github.com/prometheus/client_golang/prometheus"

var admissionDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admission_decisions_total",
		Help: "Admission gate decisions by outcome.",
	},
	[]string{"decision"},
)

func init() {
	prometheus.MustRegister(admissionDecisions)
}
