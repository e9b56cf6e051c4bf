// Package metrics exposes Prometheus collectors for access client calls.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Options configures the client metrics.
type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
	Subsystem  string
	Buckets    []float64
}

// ClientMetrics counts access client calls by operation and outcome.
type ClientMetrics struct {
	Requests        *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	SessionExpiries prometheus.Counter
}

// NewClientMetrics constructs the collectors and registers them with the
// provided registerer. Collectors already registered under the same name
// are reused.
func NewClientMetrics(opts Options) (*ClientMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "sigtrail"
	}

	subsystem := opts.Subsystem
	if subsystem == "" {
		subsystem = "client"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "requests_total",
		Help:      "Total number of access client calls partitioned by operation and outcome.",
	}, []string{"op", "outcome"}))
	if err != nil {
		return nil, fmt.Errorf("register requests collector: %w", err)
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of access client call latencies in seconds partitioned by operation.",
		Buckets:   buckets,
	}, []string{"op"}))
	if err != nil {
		return nil, fmt.Errorf("register duration collector: %w", err)
	}

	inFlight, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "in_flight_requests",
		Help:      "Current number of in-flight access client calls.",
	}))
	if err != nil {
		return nil, fmt.Errorf("register inflight collector: %w", err)
	}

	expiries, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_expiries_total",
		Help:      "Number of times an unauthorized response cleared the session.",
	}))
	if err != nil {
		return nil, fmt.Errorf("register expiries collector: %w", err)
	}

	return &ClientMetrics{
		Requests:        requests,
		Duration:        duration,
		InFlight:        inFlight,
		SessionExpiries: expiries,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
			return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return c, err
	}
	return c, nil
}

// Start marks a call as in flight. The returned func records its outcome.
func (m *ClientMetrics) Start(op string) func(outcome string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.InFlight.Inc()
	return func(outcome string) {
		m.InFlight.Dec()
		m.Requests.WithLabelValues(op, outcome).Inc()
		m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (m *ClientMetrics) SessionExpired() {
	if m == nil {
		return
	}
	m.SessionExpiries.Inc()
}
