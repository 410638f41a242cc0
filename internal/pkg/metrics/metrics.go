// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cartsync"

// Sync holds the synchronization controller collectors.
// A nil *Sync is valid and records nothing.
type Sync struct {
	passesStarted   prometheus.Counter
	passesCompleted *prometheus.CounterVec
	itemsLinked     prometheus.Counter
	retries         prometheus.Counter
	failures        *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
}

// NewSync creates and registers the sync collectors on reg
func NewSync(reg prometheus.Registerer) *Sync {
	m := &Sync{
		passesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "passes_started_total",
			Help:      "Sync passes started.",
		}),
		passesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "passes_completed_total",
			Help:      "Sync passes completed, by outcome.",
		}, []string{"outcome"}),
		itemsLinked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "items_linked_total",
			Help:      "Cart items that received a server item id.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "retries_total",
			Help:      "Add attempts retried after a transient error.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "failures_total",
			Help:      "Remote operations that failed, by kind.",
		}, []string{"kind"}),
		gatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Remote cart gateway call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.passesStarted, m.passesCompleted, m.itemsLinked,
			m.retries, m.failures, m.gatewayLatency)
	}
	return m
}

func (m *Sync) PassStarted() {
	if m == nil {
		return
	}
	m.passesStarted.Inc()
}

func (m *Sync) PassCompleted(outcome string) {
	if m == nil {
		return
	}
	m.passesCompleted.WithLabelValues(outcome).Inc()
}

func (m *Sync) ItemLinked() {
	if m == nil {
		return
	}
	m.itemsLinked.Inc()
}

func (m *Sync) Retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Sync) Failure(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

// ObserveGateway records the latency of a single gateway call
func (m *Sync) ObserveGateway(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayLatency.WithLabelValues(op, outcome).Observe(time.Since(started).Seconds())
}

// HTTP holds the request collectors of the cart API server
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP creates and registers the HTTP collectors on reg
func NewHTTP(reg prometheus.Registerer) *HTTP {
	m := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by method and status.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

// Observe records one served request
func (m *HTTP) Observe(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler exposes the collectors registered on gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
