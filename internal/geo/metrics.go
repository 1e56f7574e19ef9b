package geo

import "github.com/prometheus/client_golang/prometheus"

// geoResolutions counts resolutions by the layer that answered. The method
// label is bounded by the Method constants, so cardinality stays fixed.
var geoResolutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "geo_resolutions_total",
		Help: "Total number of geographic resolutions by resolution method.",
	},
	[]string{"method"},
)

func init() {
	prometheus.MustRegister(geoResolutions)
}
