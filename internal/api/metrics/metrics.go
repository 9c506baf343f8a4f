// Package metrics defines all custom Prometheus metrics for the donor
// directory API. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "donordir"

// RegistrationsTotal counts successful donor registrations.
// Label:
//   - blood_group: the registered donor's blood group (e.g. "O+")
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of donors registered, by blood group.",
	},
	[]string{"blood_group"},
)

// LoginsTotal counts authentication attempts.
// Label:
//   - result: "success", "failure", or "throttled"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SearchesTotal counts donor searches.
// Label:
//   - ranked: "true" when the caller supplied a location, "false" otherwise
var SearchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Total number of donor searches, by whether results were distance-ranked.",
	},
	[]string{"ranked"},
)

// SearchDuration measures end-to-end donor search latency.
var SearchDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_duration_seconds",
		Help:      "Duration of donor search requests, from filter to ranked response.",
		Buckets:   prometheus.DefBuckets,
	},
)
