package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pubmed_loader"

// Record outcomes.
const (
	OutcomeUpserted    = "upserted"
	OutcomeDeleted     = "deleted"
	OutcomeSkipped     = "skipped"
	OutcomeUnsupported = "unsupported"
)

// Ingest holds the loader's counters on a dedicated registry. A nil *Ingest is valid and
// records nothing.
type Ingest struct {
	registry         *prometheus.Registry
	filesCompleted   *prometheus.CounterVec
	filesFailed      *prometheus.CounterVec
	articles         *prometheus.CounterVec
	records          *prometheus.CounterVec
	checkpointWrites prometheus.Counter
}

// New registers all counters.
func New() *Ingest {
	m := &Ingest{
		registry: prometheus.NewRegistry(),
		filesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_completed_total",
			Help:      "Archive files fully processed, by class.",
		}, []string{"class"}),
		filesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Archive files abandoned before completion, by class.",
		}, []string{"class"}),
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Top-level records handled in completed files, by class.",
		}, []string{"class"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records seen by workers, by outcome.",
		}, []string{"outcome"}),
		checkpointWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoint_writes_total",
			Help:      "Entries appended to the checkpoint log.",
		}),
	}

	m.registry.MustRegister(m.filesCompleted, m.filesFailed, m.articles, m.records, m.checkpointWrites)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Ingest) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Ingest) FileCompleted(class string, articles int) {
	if m == nil {
		return
	}
	m.filesCompleted.WithLabelValues(class).Inc()
	m.articles.WithLabelValues(class).Add(float64(articles))
}

func (m *Ingest) FileFailed(class string) {
	if m == nil {
		return
	}
	m.filesFailed.WithLabelValues(class).Inc()
}

func (m *Ingest) Record(outcome string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(outcome).Inc()
}

func (m *Ingest) CheckpointWritten() {
	if m == nil {
		return
	}
	m.checkpointWrites.Inc()
}
