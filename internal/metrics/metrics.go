// Package metrics exposes the Prometheus instrumentation for the analytics
// core. Collectors are registered on the default registry and served from
// /metrics by the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolradar_events_ingested_total",
		Help: "Events accepted into the event store, by kind.",
	}, []string{"kind"})

	EventsDroppedBot = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolradar_events_dropped_bot_total",
		Help: "Events silently dropped by the bot filter.",
	})

	AggregationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolradar_aggregation_runs_total",
		Help: "Aggregation job executions, by result (ok, error).",
	}, []string{"result"})

	EventsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "toolradar_events_deleted_total",
		Help: "Events removed by the retention sweeper.",
	})

	AdSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolradar_ad_selections_total",
		Help: "Ad selections served, by placement and strategy.",
	}, []string{"placement", "strategy"})

	AdNoFill = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "toolradar_ad_no_fill_total",
		Help: "Ad requests with no eligible candidate, by placement.",
	}, []string{"placement"})
)
