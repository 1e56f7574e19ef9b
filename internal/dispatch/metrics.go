package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_submissions_total",
			Help: "Per-office submission attempts by chamber and outcome.",
		},
		[]string{"chamber", "outcome"},
	)

	jobStates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_jobs_total",
			Help: "Delivery jobs entering each lifecycle state.",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(submissionsTotal, jobStates)
}
