// Package metrics содержит Prometheus-коллекторы сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arena"

type Metrics struct {
	settlements        *prometheus.CounterVec
	settlementDuration *prometheus.HistogramVec
	httpLatency        *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	gatherer           prometheus.Gatherer
}

// New регистрирует все коллекторы в новом реестре. Вызовы независимы, так что тесты могут
// создавать сколько угодно экземпляров.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "operations_total",
			Help:      "Settlement engine operations by outcome",
		}, []string{"operation", "outcome"}),
		settlementDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "settlement",
			Name:      "duration_seconds",
			Help:      "Settlement transaction latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_latency_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route",
		}, []string{"route", "method", "code"}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.settlements, m.settlementDuration, m.httpLatency, m.httpRequests,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSettlement учитывает одну операцию движка. На nil-получателе ничего не делает.
func (m *Metrics) ObserveSettlement(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(operation, outcome).Inc()
	m.settlementDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"route": route, "method": method, "code": strconv.Itoa(status)}
	m.httpLatency.With(labels).Observe(elapsed.Seconds())
	m.httpRequests.With(labels).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
