// Package metrics exposes Prometheus collectors for the ingestion daemon.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the prometheus collectors for the ingestion daemon.
type Metrics struct {
	registry *prometheus.Registry

	tasksTotal        *prometheus.CounterVec
	taskFailuresTotal *prometheus.CounterVec
	chunksStoredTotal prometheus.Counter
	cacheHitsTotal    prometheus.Counter
	reconnectsTotal   prometheus.Counter
	malformedTotal    prometheus.Counter

	taskDuration  *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec

	uptime      prometheus.GaugeFunc
	activeTasks prometheus.Gauge
}

var defaultBuckets = []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600}

var (
	m         *Metrics
	startTime = time.Now()
)

// StartTime returns when the process initialized this package.
func StartTime() time.Time { return startTime }

// Init initializes the Prometheus metrics subsystem.
func Init(namespace string) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &Metrics{
		registry: registry,

		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Tasks consumed by terminal status",
			},
			[]string{"task_type", "status"},
		),

		taskFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "task_failures_total",
				Help:      "Failed tasks by failure kind",
			},
			[]string{"kind"},
		),

		chunksStoredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_stored_total",
				Help:      "Chunk rows inserted into the vector store",
			},
		),

		cacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preprocess_cache_hits_total",
				Help:      "Tasks served from cached extracted text",
			},
		),

		reconnectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broker_reconnects_total",
				Help:      "Broker connection re-establishments",
			},
		),

		malformedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "malformed_envelopes_total",
				Help:      "Deliveries rejected before processing",
			},
		),

		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "End-to-end task processing duration in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"task_type", "status"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Per-stage duration in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"stage"},
		),

		activeTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_tasks",
				Help:      "Tasks currently being processed",
			},
		),
	}

	pm.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since the daemon started",
		},
		func() float64 {
			return time.Since(StartTime()).Seconds()
		},
	)

	registry.MustRegister(
		pm.tasksTotal,
		pm.taskFailuresTotal,
		pm.chunksStoredTotal,
		pm.cacheHitsTotal,
		pm.reconnectsTotal,
		pm.malformedTotal,
		pm.taskDuration,
		pm.stageDuration,
		pm.uptime,
		pm.activeTasks,
	)

	m = pm
}

// RecordTask records a finished task with its terminal status.
func RecordTask(taskType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(taskType, status).Inc()
	m.taskDuration.WithLabelValues(taskType, status).Observe(duration.Seconds())
}

// RecordTaskFailure records a failed task by its failure kind.
func RecordTaskFailure(kind string) {
	if m == nil {
		return
	}
	m.taskFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordStage records one pipeline stage duration.
func RecordStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordChunksStored adds to the stored chunk counter.
func RecordChunksStored(n int) {
	if m == nil {
		return
	}
	m.chunksStoredTotal.Add(float64(n))
}

// RecordCacheHit records a task served from cached text.
func RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Inc()
}

// RecordReconnect records a broker reconnect.
func RecordReconnect() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}

// RecordMalformed records a rejected delivery.
func RecordMalformed() {
	if m == nil {
		return
	}
	m.malformedTotal.Inc()
}

// IncActiveTasks increments the in-flight task gauge.
func IncActiveTasks() {
	if m == nil {
		return
	}
	m.activeTasks.Inc()
}

// DecActiveTasks decrements the in-flight task gauge.
func DecActiveTasks() {
	if m == nil {
		return
	}
	m.activeTasks.Dec()
}

// Handler returns an HTTP handler for Prometheus scraping.
func Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the prometheus registry, or nil before Init.
func Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
