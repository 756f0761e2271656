package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookshelf"

var (
	// GraphQLRequests counts executed HTTP GraphQL documents by outcome ("ok" or "error")
	GraphQLRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "graphql_requests_total",
		Help:      "GraphQL documents executed over HTTP.",
	}, []string{"outcome"})

	GraphQLDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "graphql_request_duration_seconds",
		Help:      "Time spent executing GraphQL documents over HTTP.",
		Buckets:   prometheus.DefBuckets,
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Events published on the in-process bus.",
	}, []string{"topic"})

	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Subscribers evicted because their queue was full when an event was published.",
	}, []string{"topic"})

	Subscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "subscribers",
		Help:      "Live subscribers per topic.",
	}, []string{"topic"})
)
