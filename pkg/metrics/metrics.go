package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricsCollector interface for collecting metrics
type MetricsCollector interface {
	AddCounter(name string, delta float64, labels map[string]string)
	IncrementCounter(name string, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
	RecordDuration(name string, duration time.Duration, labels map[string]string)
}

// SimpleMetricsCollector is an in-memory metrics collector safe for
// concurrent use.
type SimpleMetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]float64
	histograms map[string][]float64
	gauges     map[string]float64
	logger     *zap.Logger
}

// NewSimpleMetricsCollector creates a new simple metrics collector
func NewSimpleMetricsCollector(logger *zap.Logger) *SimpleMetricsCollector {
	return &SimpleMetricsCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
		gauges:     make(map[string]float64),
		logger:     logger,
	}
}

// AddCounter adds delta to a counter metric
func (smc *SimpleMetricsCollector) AddCounter(name string, delta float64, labels map[string]string) {
	key := buildMetricKey(name, labels)
	smc.mu.Lock()
	smc.counters[key] += delta
	value := smc.counters[key]
	smc.mu.Unlock()

	smc.logger.Debug("Counter incremented",
		zap.String("metric", name),
		zap.Any("labels", labels),
		zap.Float64("value", value))
}

// IncrementCounter increments a counter metric by one
func (smc *SimpleMetricsCollector) IncrementCounter(name string, labels map[string]string) {
	smc.AddCounter(name, 1, labels)
}

// RecordHistogram records a histogram value
func (smc *SimpleMetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	key := buildMetricKey(name, labels)
	smc.mu.Lock()
	smc.histograms[key] = append(smc.histograms[key], value)
	smc.mu.Unlock()

	smc.logger.Debug("Histogram recorded",
		zap.String("metric", name),
		zap.Any("labels", labels),
		zap.Float64("value", value))
}

// SetGauge sets a gauge metric value
func (smc *SimpleMetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	key := buildMetricKey(name, labels)
	smc.mu.Lock()
	smc.gauges[key] = value
	smc.mu.Unlock()
}

// RecordDuration records a duration metric
func (smc *SimpleMetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	smc.RecordHistogram(name+"_duration_seconds", duration.Seconds(), labels)
}

// Counter returns the current value of a counter.
func (smc *SimpleMetricsCollector) Counter(name string, labels map[string]string) float64 {
	smc.mu.RLock()
	defer smc.mu.RUnlock()
	return smc.counters[buildMetricKey(name, labels)]
}

// Gauge returns the current value of a gauge.
func (smc *SimpleMetricsCollector) Gauge(name string, labels map[string]string) float64 {
	smc.mu.RLock()
	defer smc.mu.RUnlock()
	return smc.gauges[buildMetricKey(name, labels)]
}

// Observations returns a copy of the values recorded for a histogram.
func (smc *SimpleMetricsCollector) Observations(name string, labels map[string]string) []float64 {
	smc.mu.RLock()
	defer smc.mu.RUnlock()
	values := smc.histograms[buildMetricKey(name, labels)]
	return append([]float64(nil), values...)
}

// Snapshot returns a copy of all counters and gauges keyed by metric key.
func (smc *SimpleMetricsCollector) Snapshot() map[string]float64 {
	smc.mu.RLock()
	defer smc.mu.RUnlock()
	out := make(map[string]float64, len(smc.counters)+len(smc.gauges))
	for k, v := range smc.counters {
		out[k] = v
	}
	for k, v := range smc.gauges {
		out[k] = v
	}
	return out
}

// buildMetricKey builds a stable key for a metric with labels
func buildMetricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("_" + k + "_" + labels[k])
	}
	return b.String()
}

// nopCollector discards everything.
type nopCollector struct{}

// NewNopCollector returns a collector that records nothing.
func NewNopCollector() MetricsCollector { return nopCollector{} }

func (nopCollector) AddCounter(string, float64, map[string]string)            {}
func (nopCollector) IncrementCounter(string, map[string]string)               {}
func (nopCollector) RecordHistogram(string, float64, map[string]string)       {}
func (nopCollector) SetGauge(string, float64, map[string]string)              {}
func (nopCollector) RecordDuration(string, time.Duration, map[string]string) {}

// ApplicationMetrics holds all application-specific metrics
type ApplicationMetrics struct {
	collector MetricsCollector
}

// NewApplicationMetrics creates application metrics on top of collector
func NewApplicationMetrics(collector MetricsCollector) *ApplicationMetrics {
	if collector == nil {
		collector = NewNopCollector()
	}
	return &ApplicationMetrics{collector: collector}
}

// Ingestion metrics

func (am *ApplicationMetrics) RecordQuotesRetrieved(symbol string, n int) {
	am.collector.AddCounter("quotes_retrieved_total", float64(n), map[string]string{"symbol": symbol})
}

func (am *ApplicationMetrics) RecordRetrievalFailure(symbol, provider string) {
	am.collector.IncrementCounter("retrieval_failures_total", map[string]string{
		"symbol":   symbol,
		"provider": provider,
	})
}

func (am *ApplicationMetrics) RecordRowOutcome(symbol, outcome string) {
	am.collector.IncrementCounter("rows_total", map[string]string{
		"symbol":  symbol,
		"outcome": outcome,
	})
}

func (am *ApplicationMetrics) RecordRecordSkipped(symbol, reason string) {
	am.collector.IncrementCounter("records_skipped_total", map[string]string{
		"symbol": symbol,
		"reason": reason,
	})
}

func (am *ApplicationMetrics) RecordIngestDuration(symbol string, duration time.Duration) {
	am.collector.RecordDuration("ingest", duration, map[string]string{"symbol": symbol})
}

// HTTP Metrics
func (am *ApplicationMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	labels := map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(statusCode),
	}

	am.collector.IncrementCounter("http_requests_total", labels)
	am.collector.RecordDuration("http_request", duration, labels)
}

// Database Metrics
func (am *ApplicationMetrics) SetDatabaseConnections(active, idle int) {
	am.collector.SetGauge("database_connections_active", float64(active), nil)
	am.collector.SetGauge("database_connections_idle", float64(idle), nil)
}

// MetricsMiddleware creates HTTP middleware for collecting metrics
func MetricsMiddleware(metrics *ApplicationMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapper := &responseWriterWrapper{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapper, r)

			metrics.RecordHTTPRequest(r.Method, r.URL.Path, wrapper.statusCode, time.Since(start))
		})
	}
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriterWrapper) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
