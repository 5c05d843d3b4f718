package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec
	SalesFinalized  prometheus.Counter
	BillingFailures prometheus.Counter
}

func NewServerMetrics(service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pos",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	salesFinalized := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: service,
		Name:      "sales_finalized_total",
		Help:      "Total number of successfully finalized sales.",
	})
	billingFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Subsystem: service,
		Name:      "billing_failures_total",
		Help:      "Total number of failed electronic invoice requests.",
	})

	prometheus.MustRegister(requests, latency, salesFinalized, billingFailures)
	return &ServerMetrics{
		Requests:        requests,
		LatencyMS:       latency,
		SalesFinalized:  salesFinalized,
		BillingFailures: billingFailures,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
