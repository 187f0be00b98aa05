package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vincentbai/accounts-metrics/internal/models"
)

// FlushObserver is notified once per send: FlushSucceeded with the
// payload that was delivered, or FlushFailed with the transport error.
type FlushObserver interface {
	FlushSucceeded(payload map[string]any)
	FlushFailed(err error)
}

// ObserverFuncs adapts a pair of funcs to FlushObserver. Nil funcs are
// skipped.
type ObserverFuncs struct {
	OnSuccess func(payload map[string]any)
	OnError   func(err error)
}

func (o ObserverFuncs) FlushSucceeded(payload map[string]any) {
	if o.OnSuccess != nil {
		o.OnSuccess(payload)
	}
}

func (o ObserverFuncs) FlushFailed(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

// PrometheusObserver counts flush outcomes and delivered events.
type PrometheusObserver struct {
	flushes *prometheus.CounterVec
	events  prometheus.Counter
}

func NewPrometheusObserver(registerer prometheus.Registerer) *PrometheusObserver {
	factory := promauto.With(registerer)
	return &PrometheusObserver{
		flushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accounts_metrics_client_flushes_total",
				Help: "Metrics flushes sent to the collector, by result",
			},
			[]string{"result"},
		),
		events: factory.NewCounter(prometheus.CounterOpts{
			Name: "accounts_metrics_client_events_sent_total",
			Help: "Events delivered to the collector",
		}),
	}
}

func (p *PrometheusObserver) FlushSucceeded(payload map[string]any) {
	p.flushes.WithLabelValues("success").Inc()
	if events, ok := payload[models.FieldEvents].([]models.EventRecord); ok {
		p.events.Add(float64(len(events)))
	}
}

func (p *PrometheusObserver) FlushFailed(error) {
	p.flushes.WithLabelValues("error").Inc()
}
