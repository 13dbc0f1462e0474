// Package metrics exposes prometheus collectors for the event program and
// its HTTP surface.
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

// Metrics holds the collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	programCalls  *prometheus.CounterVec
	ticketsSold   prometheus.Gauge
	ticketSupply  prometheus.Gauge
	balance       prometheus.Gauge
	cacheLookups  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		programCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_program_calls_total",
				Help: "Program calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ticketsSold: factory.NewGauge(prometheus.GaugeOpts{
			Name: "event_program_tickets_sold",
			Help: "Tickets sold through primary purchase",
		}),
		ticketSupply: factory.NewGauge(prometheus.GaugeOpts{
			Name: "event_program_ticket_supply",
			Help: "Declared ticket supply of the event",
		}),
		balance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "event_program_balance_micro",
			Help: "Pooled program balance in micro-units",
		}),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_cache_lookups_total",
				Help: "Ticket cache lookups by result",
			},
			[]string{"result"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		httpDurations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCall counts one program call.
func (m *Metrics) ObserveCall(operation, outcome string) {
	m.programCalls.WithLabelValues(operation, outcome).Inc()
}

// SetTicketsSold records the sales progress of the event.
func (m *Metrics) SetTicketsSold(sold, supply uint64) {
	m.ticketsSold.Set(float64(sold))
	m.ticketSupply.Set(float64(supply))
}

// SetProgramBalance records the pooled balance after a money-moving call.
func (m *Metrics) SetProgramBalance(balance uint64) {
	m.balance.Set(float64(balance))
}

// CacheLookup counts a ticket cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDurations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
