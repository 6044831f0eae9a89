// Package metrics provides Prometheus metrics for demographic report runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names used as label values on stage-scoped metrics.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageDedupe    = "dedupe"
	StageWrite     = "write"

	DedupeInput = "input"
	DedupePass1 = "pass1"
	DedupePass2 = "pass2"
)

// Manager owns the Prometheus collectors for a report run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         *prometheus.Registry

	// Ingest
	filesLoaded  *prometheus.CounterVec
	rowsLoaded   prometheus.Counter
	rowsExcluded *prometheus.CounterVec

	// Per-record recoverable issues, by kind
	recordIssues *prometheus.CounterVec

	// Deduplication
	dedupeRows        *prometheus.GaugeVec
	uniqueWorkers     prometheus.Gauge
	conflictedWorkers prometheus.Gauge

	// Stage two
	recodedRows prometheus.Counter

	stageDuration *prometheus.HistogramVec
	lastRun       prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // process-wide run metrics

// Custom registry to avoid default Go metrics in the textfile output.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "demoreport",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		constLabels:      map[string]string{},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.filesLoaded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "files_loaded_total",
		Help:        "Results files loaded, by whether they carry the demographic question block",
		ConstLabels: m.constLabels,
	}, []string{"demographics"})

	m.rowsLoaded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_loaded_total",
		Help:        "Assignment rows accepted into the working batch",
		ConstLabels: m.constLabels,
	})

	m.rowsExcluded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rows_excluded_total",
		Help:        "Assignment rows dropped before normalization, by reason",
		ConstLabels: m.constLabels,
	}, []string{"reason"})

	m.recordIssues = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "record_issues_total",
		Help:        "Recoverable per-record data issues that fell back to a default value",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.dedupeRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dedupe_rows",
		Help:        "Report rows before deduplication and after each pass",
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.uniqueWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "unique_workers",
		Help:        "Distinct worker ids in the final report",
		ConstLabels: m.constLabels,
	})

	m.conflictedWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "conflicted_workers",
		Help:        "Workers left with more than one report row after reconciliation",
		ConstLabels: m.constLabels,
	})

	m.recodedRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "recoded_rows_total",
		Help:        "Rows written to the REDCap import file",
		ConstLabels: m.constLabels,
	})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_seconds",
		Help:        "Wall time spent in each pipeline stage",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.lastRun = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_run_timestamp_seconds",
		Help:        "Unix time of the last completed run",
		ConstLabels: m.constLabels,
	})
}

// RecordFileLoaded counts a loaded results file.
func (m *Manager) RecordFileLoaded(hasDemographics bool) {
	label := "no"
	if hasDemographics {
		label = "yes"
	}
	m.filesLoaded.WithLabelValues(label).Inc()
}

// RecordRowsLoaded adds n accepted rows.
func (m *Manager) RecordRowsLoaded(n int) { m.rowsLoaded.Add(float64(n)) }

// RecordRowsExcluded adds n rows dropped for reason.
func (m *Manager) RecordRowsExcluded(reason string, n int) {
	m.rowsExcluded.WithLabelValues(reason).Add(float64(n))
}

// RecordIssue counts one recoverable record issue of the given kind.
func (m *Manager) RecordIssue(kind string) { m.recordIssues.WithLabelValues(kind).Inc() }

// SetDedupeRows sets the row count observed at a dedupe stage.
func (m *Manager) SetDedupeRows(stage string, n int) {
	m.dedupeRows.WithLabelValues(stage).Set(float64(n))
}

// SetWorkers records the unique and conflicted worker counts of the final report.
func (m *Manager) SetWorkers(unique, conflicted int) {
	m.uniqueWorkers.Set(float64(unique))
	m.conflictedWorkers.Set(float64(conflicted))
}

// RecordRecoded adds n recoded rows.
func (m *Manager) RecordRecoded(n int) { m.recodedRows.Add(float64(n)) }

// ObserveStage records how long a stage took.
func (m *Manager) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// MarkRunComplete stamps the last-run gauge with the current time.
func (m *Manager) MarkRunComplete() { m.lastRun.SetToCurrentTime() }

// WriteTextfile writes every metric in the registry to path in the text
// exposition format, for pickup by the node_exporter textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteTextfile, path, err)
	}
	return nil
}

// Registry returns the registry the manager's collectors live on.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Default returns the process-wide manager.
func Default() *Manager { return globalManager }

// WriteTextfile dumps the global registry to path.
func WriteTextfile(path string) error { return globalManager.WriteTextfile(path) }
