package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg         *prometheus.Registry
	proposals   *prometheus.CounterVec
	validations *prometheus.CounterVec
	requests    *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		proposals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nfticket",
			Name:      "proposals_total",
			Help:      "Phase 1 proposals by transaction kind and outcome.",
		}, []string{"kind", "outcome"}),
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nfticket",
			Name:      "validations_total",
			Help:      "Phase 2 validations by transaction kind and outcome.",
		}, []string{"kind", "outcome"}),
		requests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nfticket",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and status.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 6, 10},
		}, []string{"method", "status"}),
	}
}

func (m *Metrics) ObserveProposal(kind, outcome string) {
	m.proposals.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveValidation(kind, outcome string) {
	m.validations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
