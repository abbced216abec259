package clientapi

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/migalabs/valscore/pkg/metrics"
	"github.com/migalabs/valscore/pkg/utils"
)

const (
	clientAPIMetricsName    = "clientapi"
	clientAPIMetricsDetails = "metrics about node and price service requests"
)

var (
	registerRequestMetricsOnce sync.Once

	requestRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: strings.ToLower(utils.CliName),
			Subsystem: clientAPIMetricsName,
			Name:      "request_retries_total",
			Help:      "Total number of retried requests grouped by operation.",
		},
		[]string{"operation"},
	)

	requestFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: strings.ToLower(utils.CliName),
			Subsystem: clientAPIMetricsName,
			Name:      "request_failures_total",
			Help:      "Total number of requests that ended in error after all attempts.",
		},
		[]string{"operation"},
	)

	requestFailureAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: strings.ToLower(utils.CliName),
			Subsystem: clientAPIMetricsName,
			Name:      "request_failure_attempts",
			Help:      "Number of attempts issued when a request ends in error.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		},
		[]string{"operation"},
	)
)

// requestMetrics keeps local totals next to the prometheus collectors so the
// summary is available with the exporter disabled.
type requestMetrics struct {
	mu       sync.Mutex
	retries  map[string]int64
	failures map[string]int64
}

func newRequestMetrics() *requestMetrics {
	return &requestMetrics{
		retries:  make(map[string]int64),
		failures: make(map[string]int64),
	}
}

func (m *requestMetrics) recordRetry(operation string) {
	if m == nil {
		return
	}
	requestRetries.WithLabelValues(operation).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries[operation]++
}

func (m *requestMetrics) recordFailure(operation string, attempts uint) {
	if m == nil {
		return
	}
	if attempts == 0 {
		attempts = 1
	}
	requestFailures.WithLabelValues(operation).Inc()
	requestFailureAttempts.WithLabelValues(operation).Observe(float64(attempts))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[operation]++
}

type requestSummary struct {
	Retries  map[string]int64
	Failures map[string]int64
}

func (m *requestMetrics) snapshot() requestSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := requestSummary{
		Retries:  make(map[string]int64, len(m.retries)),
		Failures: make(map[string]int64, len(m.failures)),
	}
	for op, n := range m.retries {
		out.Retries[op] = n
	}
	for op, n := range m.failures {
		out.Failures[op] = n
	}
	return out
}

func (m *requestMetrics) getPrometheusMetrics() *metrics.MetricsModule {
	if m == nil {
		return nil
	}

	mod := metrics.NewMetricsModule(
		clientAPIMetricsName,
		clientAPIMetricsDetails,
	)

	initFn := func() error {
		registerRequestMetricsOnce.Do(func() {
			prometheus.MustRegister(requestRetries)
			prometheus.MustRegister(requestFailures)
			prometheus.MustRegister(requestFailureAttempts)
		})
		return nil
	}

	updateFn := func() (interface{}, error) {
		return m.snapshot(), nil
	}

	indvMetrics, err := metrics.NewIndvMetrics(
		"request_failures",
		initFn,
		updateFn,
	)
	if err != nil {
		log.Error(errors.Wrap(err, "unable to init request_failures metrics"))
		return nil
	}

	if err := mod.AddIndvMetric(indvMetrics); err != nil {
		log.Error(errors.Wrap(err, "unable to register request metrics module"))
		return nil
	}

	return mod
}

// GetPrometheusMetrics returns the request metrics of the execution and consensus clients.
func (s *APIClient) GetPrometheusMetrics() *metrics.MetricsModule {
	return s.metrics.getPrometheusMetrics()
}

// GetPrometheusMetrics returns the request metrics of the price service client.
func (p *PriceClient) GetPrometheusMetrics() *metrics.MetricsModule {
	return p.metrics.getPrometheusMetrics()
}
