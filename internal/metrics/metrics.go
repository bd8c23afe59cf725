// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "inkpress"

// Result label values.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
	ResultStored   = "stored"
	ResultDropped  = "dropped"
	ResultLimited  = "limited"
)

var (
	// PublisherSweeps counts finished publication sweeps.
	PublisherSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publisher_sweeps_total",
		Help:      "Number of scheduled publication sweeps.",
	})

	// PostsPublished counts posts flipped to published by the sweep.
	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publisher_posts_published_total",
		Help:      "Number of scheduled posts published by the sweep.",
	})

	// PublisherErrors counts sweep failures by stage (query, update, panic).
	PublisherErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publisher_errors_total",
		Help:      "Number of publication sweep failures by stage.",
	}, []string{"stage"})

	// Revalidations counts frontend revalidation calls by result.
	Revalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "revalidations_total",
		Help:      "Number of frontend revalidation calls by result.",
	}, []string{"result"})

	// RevalidateBreakerState is 0 when closed, 1 when half open and 2 when open.
	RevalidateBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "revalidate_breaker_state",
		Help:      "State of the revalidation circuit breaker.",
	})

	// Uploads counts processed uploads by result.
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Number of image uploads by result.",
	}, []string{"result"})

	// AnalyticsEvents counts received analytics events by result.
	AnalyticsEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analytics_events_total",
		Help:      "Number of analytics events by result.",
	}, []string{"result"})
)
