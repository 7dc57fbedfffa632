// Copyright 2025 Joseph Cumines
//
// Metrics registry for observability

package transport

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// MetricsRegistry provides thread-safe metrics collection for the bridge.
// It tracks MCP tool invocations and LookinServer wire requests using
// simple in-memory counters exportable in Prometheus text format.
type MetricsRegistry struct {
	counters   map[string]*counter
	histograms map[string]*histogram
	gauges     map[string]*gauge
	mu         sync.RWMutex
}

// counter represents a monotonically increasing counter with optional labels.
type counter struct {
	values map[string]uint64 // label combo -> count
	mu     sync.RWMutex
}

// histogram represents a distribution of values with predefined buckets.
type histogram struct {
	counts  map[string][]uint64 // label combo -> bucket counts
	sums    map[string]float64  // label combo -> sum of all values
	totals  map[string]uint64   // label combo -> total count
	buckets []float64           // bucket upper bounds
	mu      sync.RWMutex
}

// gauge represents a value that can go up or down.
type gauge struct {
	values map[string]float64
	mu     sync.RWMutex
}

// Default histogram buckets for request latencies (in seconds)
var defaultLatencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 15.0,
}

// NewMetricsRegistry creates a new metrics registry with the bridge's
// standard metrics registered.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
		gauges:     make(map[string]*gauge),
	}

	// Pre-register standard metrics
	m.registerCounter("mcp_requests_total")
	m.registerCounter("lookin_wire_requests_total")
	m.registerHistogram("mcp_request_duration_seconds", defaultLatencyBuckets)
	m.registerHistogram("lookin_wire_request_duration_seconds", defaultLatencyBuckets)
	m.registerGauge("lookin_connection_ready")

	return m
}

func (m *MetricsRegistry) registerCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = &counter{values: make(map[string]uint64)}
}

func (m *MetricsRegistry) registerHistogram(name string, buckets []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = &histogram{
		buckets: buckets,
		counts:  make(map[string][]uint64),
		sums:    make(map[string]float64),
		totals:  make(map[string]uint64),
	}
}

func (m *MetricsRegistry) registerGauge(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = &gauge{values: make(map[string]float64)}
}

// IncrementCounter increments a counter by 1 for the given label combination.
// Labels should be formatted as: key1="value1",key2="value2"
func (m *MetricsRegistry) IncrementCounter(name string, labels string) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	c.mu.Lock()
	c.values[labels]++
	c.mu.Unlock()
}

// ObserveHistogram records a value in a histogram for the given label combination.
func (m *MetricsRegistry) ObserveHistogram(name string, labels string, value float64) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.counts[labels]; !exists {
		h.counts[labels] = make([]uint64, len(h.buckets)+1) // +1 for +Inf
	}

	h.sums[labels] += value
	h.totals[labels]++

	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[labels][i]++
		}
	}
	// Always increment +Inf bucket
	h.counts[labels][len(h.buckets)]++
}

// SetGauge sets a gauge to a specific value.
func (m *MetricsRegistry) SetGauge(name string, labels string, value float64) {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	g.mu.Lock()
	g.values[labels] = value
	g.mu.Unlock()
}

// sortedKeys returns map keys in deterministic order for exposition.
func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WritePrometheus writes all metrics in Prometheus text format to the writer.
func (m *MetricsRegistry) WritePrometheus(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range sortedKeys(m.counters) {
		c := m.counters[name]
		c.mu.RLock()
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		for _, l := range sortedKeys(c.values) {
			if err := writeSample(w, name, l, fmt.Sprintf("%d", c.values[l])); err != nil {
				c.mu.RUnlock()
				return err
			}
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedKeys(m.gauges) {
		g := m.gauges[name]
		g.mu.RLock()
		fmt.Fprintf(w, "# TYPE %s gauge\n", name)
		for _, l := range sortedKeys(g.values) {
			if err := writeSample(w, name, l, fmt.Sprintf("%g", g.values[l])); err != nil {
				g.mu.RUnlock()
				return err
			}
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedKeys(m.histograms) {
		h := m.histograms[name]
		h.mu.RLock()
		fmt.Fprintf(w, "# TYPE %s histogram\n", name)
		for _, l := range sortedKeys(h.counts) {
			labelPrefix := ""
			if l != "" {
				labelPrefix = l + ","
			}

			// ObserveHistogram already stores cumulative counts per bucket.
			for i, bound := range h.buckets {
				if _, err := fmt.Fprintf(w, "%s_bucket{%sle=\"%g\"} %d\n", name, labelPrefix, bound, h.counts[l][i]); err != nil {
					h.mu.RUnlock()
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s_bucket{%sle=\"+Inf\"} %d\n", name, labelPrefix, h.counts[l][len(h.buckets)]); err != nil {
				h.mu.RUnlock()
				return err
			}

			if err := writeSample(w, name+"_sum", l, fmt.Sprintf("%g", h.sums[l])); err != nil {
				h.mu.RUnlock()
				return err
			}
			if err := writeSample(w, name+"_count", l, fmt.Sprintf("%d", h.totals[l])); err != nil {
				h.mu.RUnlock()
				return err
			}
		}
		h.mu.RUnlock()
	}

	return nil
}

func writeSample(w io.Writer, name, labels, value string) error {
	var err error
	if labels == "" {
		_, err = fmt.Fprintf(w, "%s %s\n", name, value)
	} else {
		_, err = fmt.Fprintf(w, "%s{%s} %s\n", name, labels, value)
	}
	return err
}

// RecordRequest records a tool invocation with count and latency metrics.
// This is the main entry point for instrumentation from the MCP server.
func (m *MetricsRegistry) RecordRequest(tool string, status string, duration time.Duration) {
	labels := fmt.Sprintf(`tool="%s",status="%s"`, tool, status)
	m.IncrementCounter("mcp_requests_total", labels)

	toolLabels := fmt.Sprintf(`tool="%s"`, tool)
	m.ObserveHistogram("mcp_request_duration_seconds", toolLabels, duration.Seconds())
}

// RecordWireRequest records one LookinServer protocol round-trip.
func (m *MetricsRegistry) RecordWireRequest(code uint32, status string, duration time.Duration) {
	labels := fmt.Sprintf(`code="%d",status="%s"`, code, status)
	m.IncrementCounter("lookin_wire_requests_total", labels)

	codeLabels := fmt.Sprintf(`code="%d"`, code)
	m.ObserveHistogram("lookin_wire_request_duration_seconds", codeLabels, duration.Seconds())
}

// SetConnectionReady records whether a LookinServer connection is Ready.
func (m *MetricsRegistry) SetConnectionReady(ready bool) {
	v := 0.0
	if ready {
		v = 1.0
	}
	m.SetGauge("lookin_connection_ready", "", v)
}

// Global metrics registry instance
var defaultMetrics = NewMetricsRegistry()

// DefaultMetrics returns the global metrics registry.
func DefaultMetrics() *MetricsRegistry {
	return defaultMetrics
}
