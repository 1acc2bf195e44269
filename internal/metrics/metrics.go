package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ShillsCreated counts shill creations
	ShillsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shillspot_shills_created_total",
			Help: "Total number of shills created",
		},
	)

	// ShillsCancelled counts shill cancellations
	ShillsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shillspot_shills_cancelled_total",
			Help: "Total number of shills cancelled by their creators",
		},
	)

	// ShillsResolved counts accept/decline transitions
	ShillsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shillspot_shills_resolved_total",
			Help: "Total number of shills resolved out of pending",
		},
		[]string{"status"},
	)

	// ResultsRecorded counts profit/loss verdicts
	ResultsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shillspot_results_recorded_total",
			Help: "Total number of profit/loss verdicts recorded",
		},
		[]string{"result"},
	)

	// FollowRequests counts follow-request workflow transitions
	FollowRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shillspot_follow_requests_total",
			Help: "Total number of follow-request operations",
		},
		[]string{"action"},
	)

	// Registrations counts new member registrations
	Registrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shillspot_registrations_total",
			Help: "Total number of member registrations",
		},
	)

	// AuthFailures counts rejected requests by reason
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shillspot_auth_failures_total",
			Help: "Total number of rejected authentications",
		},
		[]string{"reason"},
	)

	// ErrorsTotal counts internal errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shillspot_errors_total",
			Help: "Total number of internal errors",
		},
		[]string{"component"},
	)
)
