// Package metrics exposes Prometheus instrumentation for node execution:
// counts by class and outcome, run duration, and container exit codes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// NodeRunsTotal counts completed node runs by class and outcome.
	NodeRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skelet0wn_node_runs_total",
			Help: "Total number of node runs by class and outcome",
		},
		[]string{"class", "outcome"},
	)

	// NodeRunDuration observes wall-clock time spent in Node.Run.
	NodeRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skelet0wn_node_run_duration_seconds",
			Help:    "Node run duration in seconds by class",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"class"},
	)

	// ContainerExitCode counts container terminations by exit code.
	ContainerExitCode = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skelet0wn_container_exit_code_total",
			Help: "Total container terminations by exit code",
		},
		[]string{"code"},
	)

	// ResolverMisses counts dynamic inputs that resolved to "unresolvable".
	ResolverMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skelet0wn_resolver_unresolvable_total",
			Help: "Total dynamic parameter lookups that found no value",
		},
		[]string{"input"},
	)
)

func init() {
	prometheus.MustRegister(NodeRunsTotal, NodeRunDuration, ContainerExitCode, ResolverMisses)
}

// Handler returns the HTTP handler serving the Prometheus exposition
// format, to be mounted at /metrics by a driver program.
func Handler() http.Handler {
	return promhttp.Handler()
}
