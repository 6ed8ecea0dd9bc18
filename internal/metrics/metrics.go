// Package metrics exposes Prometheus instruments for ingestion runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// Sync holds the instruments updated by the ingestion orchestrator.
type Sync struct {
	Documents *prometheus.CounterVec
	Chunks    *prometheus.CounterVec
	Runs      *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Running   prometheus.Gauge
}

// NewSync registers the sync instruments with reg.
// A nil reg creates unregistered instruments.
func NewSync(reg prometheus.Registerer) *Sync {
	factory := promauto.With(reg)
	return &Sync{
		Documents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sercha_ingest",
				Name:      "documents_total",
				Help:      "Documents reconciled, by source and result.",
			},
			[]string{"source", "result"},
		),
		Chunks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sercha_ingest",
				Name:      "chunks_written_total",
				Help:      "Chunks written, by source.",
			},
			[]string{"source"},
		),
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sercha_ingest",
				Name:      "sync_runs_total",
				Help:      "Finished sync runs, by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sercha_ingest",
				Name:      "sync_duration_seconds",
				Help:      "Sync run duration in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"source"},
		),
		Running: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sercha_ingest",
				Name:      "syncs_running",
				Help:      "Sync runs currently in progress.",
			},
		),
	}
}

// Observe records a finished sync result. Safe on a nil receiver.
func (m *Sync) Observe(r *domain.SyncResult) {
	if m == nil || r == nil {
		return
	}
	src := r.SourceID
	m.Documents.WithLabelValues(src, "added").Add(float64(r.Added))
	m.Documents.WithLabelValues(src, "updated").Add(float64(r.Updated))
	m.Documents.WithLabelValues(src, "deleted").Add(float64(r.Deleted))
	m.Documents.WithLabelValues(src, "skipped").Add(float64(len(r.Skipped)))
	m.Chunks.WithLabelValues(src).Add(float64(r.Chunks))
	m.Runs.WithLabelValues(src, r.Outcome.String()).Inc()
	m.Duration.WithLabelValues(src).Observe(r.Duration().Seconds())
}

// Start marks a sync as running and returns a func that unmarks it.
// Safe on a nil receiver.
func (m *Sync) Start() func() {
	if m == nil {
		return func() {}
	}
	m.Running.Inc()
	return m.Running.Dec
}
