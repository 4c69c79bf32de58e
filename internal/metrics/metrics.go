// Package metrics exposes Prometheus metrics for booking flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicetyped/flightbot/pkg/dialog"
	"github.com/voicetyped/flightbot/pkg/webhook"
)

var (
	FlowsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightbot_flows_started_total",
			Help: "Total number of booking flows started",
		},
		[]string{"host"},
	)

	FlowsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightbot_flows_finished_total",
			Help: "Total number of booking flows finished, by outcome",
		},
		[]string{"host", "outcome"},
	)

	Prompts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightbot_prompts_total",
			Help: "Total number of prompts issued, by step",
		},
		[]string{"step"},
	)

	FlowTurns = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flightbot_flow_turns",
			Help:    "Number of user replies per finished flow",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightbot_webhook_deliveries_total",
			Help: "Total number of outcome notifications, by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightbot_active_sessions",
			Help: "Number of booking sessions in the shared session store, sampled by the reaper",
		},
	)
)

// Recorder feeds dialog engine callbacks into the package metrics.
type Recorder struct{}

var _ dialog.Observer = Recorder{}

func (Recorder) FlowStarted(host string) {
	FlowsStarted.WithLabelValues(host).Inc()
}

func (Recorder) Prompted(step dialog.StepName) {
	Prompts.WithLabelValues(string(step)).Inc()
}

func (Recorder) FlowFinished(host string, outcome dialog.Outcome, turns int) {
	FlowsFinished.WithLabelValues(host, string(outcome)).Inc()
	FlowTurns.Observe(float64(turns))
}

// WebhookResult counts one finished outcome notification.
func WebhookResult(r webhook.Result) {
	result := "delivered"
	if r.Err != nil {
		result = "failed"
	}
	WebhookDeliveries.WithLabelValues(r.Endpoint, result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
