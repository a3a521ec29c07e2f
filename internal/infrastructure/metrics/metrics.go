// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	adoptionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "adoption_transitions_total",
		Help: "Adoption status transitions applied, by source and target status.",
	}, []string{"from", "to"})

	adoptionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adoption_conflicts_total",
		Help: "Adoption requests refused because the pet already had one in flight.",
	})

	adoptionRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adoption_repairs_total",
		Help: "Read-repairs that had to rewrite pet ownership or the owned-set.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// AdoptionTransition counts a transition; from is empty for creation.
func AdoptionTransition(from, to string) {
	if from == "" {
		from = "none"
	}
	adoptionTransitions.WithLabelValues(from, to).Inc()
}

func AdoptionConflict() { adoptionConflicts.Inc() }

func AdoptionRepair() { adoptionRepairs.Inc() }

func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
