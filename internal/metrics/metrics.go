package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal     *prometheus.CounterVec
	uploadBytesTotal *prometheus.CounterVec
	uploadDurationMs *prometheus.HistogramVec

	deletesTotal *prometheus.CounterVec
	backupsTotal *prometheus.CounterVec
	uploadErrors *prometheus.CounterVec

	migrationItemsTotal   *prometheus.CounterVec
	migrationBatchesTotal prometheus.Counter
	migrationInFlight     prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Total number of upload attempts.",
	}, []string{"category", "outcome"})
	m.uploadBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_bytes_total",
		Help: "Total number of bytes successfully uploaded.",
	}, []string{"category"})
	m.uploadDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upload_duration_ms",
		Help:    "Upload duration in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(25, 2, 14),
	}, []string{"category", "outcome"})

	m.deletesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deletes_total",
		Help: "Total number of remote delete attempts.",
	}, []string{"outcome"})
	m.backupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backups_total",
		Help: "Total number of local backup attempts.",
	}, []string{"outcome"})
	m.uploadErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_errors_total",
		Help: "Total number of upload errors by code.",
	}, []string{"code"})

	m.migrationItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "migration_items_total",
		Help: "Total number of migration plan items processed.",
	}, []string{"status"})
	m.migrationBatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "migration_batches_total",
		Help: "Total number of migration batches executed.",
	})
	m.migrationInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "migration_in_flight_uploads",
		Help: "Number of migration uploads currently in flight.",
	})

	reg.MustRegister(
		m.uploadsTotal,
		m.uploadBytesTotal,
		m.uploadDurationMs,
		m.deletesTotal,
		m.backupsTotal,
		m.uploadErrors,
		m.migrationItemsTotal,
		m.migrationBatchesTotal,
		m.migrationInFlight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *Metrics) ObserveUpload(category string, success bool, bytes int64, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeLabel(success)
	m.uploadsTotal.WithLabelValues(category, outcome).Inc()
	if success && bytes > 0 {
		m.uploadBytesTotal.WithLabelValues(category).Add(float64(bytes))
	}
	ms := float64(duration.Milliseconds())
	if ms < 0 {
		ms = 0
	}
	m.uploadDurationMs.WithLabelValues(category, outcome).Observe(ms)
}

func (m *Metrics) IncDelete(success bool) {
	if m == nil {
		return
	}
	m.deletesTotal.WithLabelValues(outcomeLabel(success)).Inc()
}

func (m *Metrics) IncBackup(outcome string) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	m.backupsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncUploadError(code string) {
	if m == nil {
		return
	}
	code = strings.TrimSpace(code)
	if code == "" {
		code = "unknown"
	}
	m.uploadErrors.WithLabelValues(code).Inc()
}

func (m *Metrics) IncMigrationItem(status string) {
	if m == nil {
		return
	}
	m.migrationItemsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncMigrationBatch() {
	if m == nil {
		return
	}
	m.migrationBatchesTotal.Inc()
}

func (m *Metrics) AddMigrationInFlight(delta int) {
	if m == nil {
		return
	}
	m.migrationInFlight.Add(float64(delta))
}
