// Package metrics exposes Prometheus counters for normalization work.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
)

const namespace = "corpus"

// Metrics owns a private registry so tests and multiple servers never clash.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	lines          prometheus.Counter
	changedLines   prometheus.Counter
	substitutions  prometheus.Counter
	unmapped       prometheus.Counter
	pairs          prometheus.Counter
	skippedRecords prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalized_lines_total",
			Help:      "Lines passed through the normalizer.",
		}),
		changedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changed_lines_total",
			Help:      "Lines whose text the normalizer changed.",
		}),
		substitutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "substitutions_total",
			Help:      "Rule applications.",
		}),
		unmapped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmapped_characters_total",
			Help:      "Suspect characters left in normalized text.",
		}),
		pairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_pairs_total",
			Help:      "Valid sentence pairs produced by the splitter.",
		}),
		skippedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Malformed records skipped by the splitter.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.lines,
		m.changedLines,
		m.substitutions,
		m.unmapped,
		m.pairs,
		m.skippedRecords,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveDiagnostics adds normalizer counters.
func (m *Metrics) ObserveDiagnostics(d domain.Diagnostics) {
	m.lines.Add(float64(d.Lines))
	m.changedLines.Add(float64(d.ChangedLines))
	m.substitutions.Add(float64(d.Substitutions))
	m.unmapped.Add(float64(d.Unmapped))
}

// ObserveSplit adds splitter counters.
func (m *Metrics) ObserveSplit(s domain.SplitStats) {
	m.pairs.Add(float64(s.Valid))
	m.skippedRecords.Add(float64(s.Skipped))
}
