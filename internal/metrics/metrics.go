// Package metrics exposes Prometheus collectors for the back-office.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded by the gateway and login counters.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	logins     *prometheus.CounterVec
	requests   *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_gateway_operations_total",
			Help: "Create, update and delete calls by entity and outcome.",
		}, []string{"entity", "operation", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admin_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.operations, m.logins, m.requests)
	return m
}

// Operation counts one gateway mutation.
func (m *Metrics) Operation(entity, operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(entity, operation, outcome).Inc()
}

// Login counts one login attempt.
func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// Request observes one served HTTP request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (m *Metrics) Request(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
