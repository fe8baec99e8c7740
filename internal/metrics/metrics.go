package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "jobcraft"

// Metrics holds the client side instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// RequestsTotal tracks API calls per endpoint, method and status
	RequestsTotal *prometheus.CounterVec
	// RequestLatency tracks API call latency
	RequestLatency *prometheus.HistogramVec
	// ErrorsTotal tracks classified failures per endpoint and error type
	ErrorsTotal *prometheus.CounterVec
	// AnalysesTotal tracks analyzer submissions per outcome
	AnalysesTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"endpoint", "method", "status"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request latency in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"endpoint", "method"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of classified API errors",
			},
			[]string{"endpoint", "type"},
		),
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyses_total",
				Help:      "Total number of submitted analyses by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveRequest records one finished request. status is 0 when no response
// was received.
func (m *Metrics) ObserveRequest(endpoint, method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(endpoint, method, code).Inc()
	m.RequestLatency.WithLabelValues(endpoint, method).Observe(took.Seconds())
}

func (m *Metrics) ObserveError(endpoint, errType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(endpoint, errType).Inc()
}

func (m *Metrics) ObserveAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}
