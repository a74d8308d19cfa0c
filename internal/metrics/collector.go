// Package metrics exposes Prometheus metrics for the tutor API and the RAG
// pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mayo124/aiAdaptiveLearningEnv18/internal/rag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector owns its registry so tests and multiple servers never collide on
// the global default.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	ragStageDuration *prometheus.HistogramVec
	ragOutcomesTotal *prometheus.CounterVec

	migratedVectors prometheus.Counter

	logger *zap.Logger
}

var _ rag.Recorder = (*Collector)(nil)

func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ragStageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rag_stage_duration_seconds",
				Help:      "Duration of retrieval and generation stages",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		ragOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rag_answers_total",
				Help:      "Answers produced, by outcome",
			},
			[]string{"outcome"},
		),
		migratedVectors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrated_vectors_total",
			Help:      "Vectors written by the migration tool",
		}),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (c *Collector) ObserveStage(stage string, d time.Duration) {
	c.ragStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collector) ObserveOutcome(outcome rag.Outcome) {
	c.ragOutcomesTotal.WithLabelValues(string(outcome)).Inc()
}

func (c *Collector) AddMigrated(n int) {
	c.migratedVectors.Add(float64(n))
}

// MigratedTotal reads migrated_vectors_total back from the registry.
func (c *Collector) MigratedTotal() float64 {
	mfs, err := c.registry.Gather()
	if err != nil {
		c.logger.Warn("gather metrics failed", zap.Error(err))
		return 0
	}
	for _, mf := range mfs {
		if !strings.HasSuffix(mf.GetName(), "migrated_vectors_total") {
			continue
		}
		if ms := mf.GetMetric(); len(ms) > 0 {
			return ms[0].GetCounter().GetValue()
		}
	}
	return 0
}

// WriteTextfile writes the registry in the text format read by the
// node_exporter textfile collector, for jobs that exit before a scrape.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(c.logger),
	})
}
