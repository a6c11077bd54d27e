package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alarmclock"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	transitions     *prom.CounterVec
	rejections      *prom.CounterVec
	triggers        *prom.CounterVec
	triggerFailures *prom.CounterVec
	retries         *prom.CounterVec
	duration        *prom.HistogramVec
	ringing         prom.Gauge
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
// A nil registry gets a private one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	r := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Alarm state transitions by source and target state",
		}, []string{"from", "to"}),
		rejections: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected transitions by reason",
		}, []string{"reason"}),
		triggers: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Delivered triggers by kind",
		}, []string{"kind"}),
		triggerFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_failures_total",
			Help:      "Triggers whose handling failed after all retries",
		}, []string{"kind"}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_retries_total",
			Help:      "Retried trigger deliveries",
		}, []string{"kind"}),
		duration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "use_case_duration_seconds",
			Help:      "Time spent inside lifecycle use cases",
			Buckets:   prom.DefBuckets,
		}, []string{"use_case"}),
		ringing: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "ringing",
			Help:      "1 while an alarm holds the ringing resource",
		}),
	}

	reg.MustRegister(r.transitions, r.rejections, r.triggers, r.triggerFailures, r.retries, r.duration, r.ringing)

	return r
}

func (r *PrometheusRecorder) IncTransition(from, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

func (r *PrometheusRecorder) IncRejection(reason string) {
	r.rejections.WithLabelValues(reason).Inc()
}

func (r *PrometheusRecorder) IncTrigger(kind string) {
	r.triggers.WithLabelValues(kind).Inc()
}

func (r *PrometheusRecorder) IncTriggerFailure(kind string) {
	r.triggerFailures.WithLabelValues(kind).Inc()
}

func (r *PrometheusRecorder) IncRetry(kind string) {
	r.retries.WithLabelValues(kind).Inc()
}

func (r *PrometheusRecorder) ObserveTransition(useCase string, d time.Duration) {
	r.duration.WithLabelValues(useCase).Observe(d.Seconds())
}

func (r *PrometheusRecorder) SetRinging(held bool) {
	if held {
		r.ringing.Set(1)

		return
	}

	r.ringing.Set(0)
}

// Handler serves the metrics of reg.
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
