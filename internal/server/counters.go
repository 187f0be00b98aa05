package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type collectorCounters struct {
	flushes  prometheus.Counter
	events   prometheus.Counter
	rejected *prometheus.CounterVec
}

func newCollectorCounters(registerer prometheus.Registerer) *collectorCounters {
	factory := promauto.With(registerer)
	return &collectorCounters{
		flushes: factory.NewCounter(prometheus.CounterOpts{
			Name: "accounts_metrics_collector_flushes_total",
			Help: "Metrics flushes stored by the collector",
		}),
		events: factory.NewCounter(prometheus.CounterOpts{
			Name: "accounts_metrics_collector_events_total",
			Help: "Events stored by the collector",
		}),
		rejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_metrics_collector_rejected_total",
				Help: "Metrics flushes rejected by the collector, by reason",
			},
			[]string{"reason"},
		),
	}
}
