package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus registry and the skill meters.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationTotal    *prometheus.CounterVec
	PayloadBytes      *prometheus.CounterVec
	ActiveConnections *prometheus.GaugeVec
}

// NewMetrics creates a custom Prometheus registry with the skill metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skill_requests_total",
		Help: "Skill invocations by request type, final handler and outcome.",
	}, []string{"request_type", "handler", "outcome"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skill_request_duration_seconds",
		Help:    "Duration of skill invocations in seconds.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"request_type", "outcome"})

	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skill_errors_total",
		Help: "Dispatch errors by kind.",
	}, []string{"kind"})

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skill_operation_duration_seconds",
		Help:    "Duration of operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	opTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skill_operation_total",
		Help: "Total number of operations.",
	}, []string{"operation", "status"})

	payload := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skill_payload_bytes_total",
		Help: "Envelope bytes read and written by transports.",
	}, []string{"transport", "direction"})

	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "skill_active_connections",
		Help: "Open long-lived connections by transport.",
	}, []string{"transport"})

	reg.MustRegister(requests, requestDuration, errorsTotal, opDuration, opTotal, payload, active)

	return &Metrics{
		Registry:          reg,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		ErrorsTotal:       errorsTotal,
		OperationDuration: opDuration,
		OperationTotal:    opTotal,
		PayloadBytes:      payload,
		ActiveConnections: active,
	}
}
