// Package metrics holds the Prometheus collectors of the gedcom tools.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/Neumenon/gedcom7/gedcom"
)

const namespace = "gedcom"

// Document results.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Metrics is a set of collectors registered on a private registry, so
// several instances never clash.
type Metrics struct {
	reg *prometheus.Registry

	documents  *prometheus.CounterVec
	lines      prometheus.Counter
	bytes      prometheus.Counter
	records    *prometheus.CounterVec
	violations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		// documents counts processed documents.
		// Labels: result (valid, invalid, error)
		documents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed by result",
		}, []string{"result"}),
		lines: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Lines read or written",
		}),
		bytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes read or written",
		}),
		// records counts level-0 records.
		// Labels: tag
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Level-0 records by tag",
		}, []string{"tag"}),
		// violations counts report entries.
		// Labels: code
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Violations by code",
		}, []string{"code"}),
		// duration measures pipeline phases.
		// Labels: phase (decode, validate, encode)
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent per pipeline phase",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"phase"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveDocument counts a document outcome.
func (m *Metrics) ObserveDocument(result string) {
	m.documents.WithLabelValues(result).Inc()
}

// AddIO counts lines and bytes.
func (m *Metrics) AddIO(lines int, bytes int64) {
	m.lines.Add(float64(lines))
	m.bytes.Add(float64(bytes))
}

// ObserveRecords counts records per tag.
func (m *Metrics) ObserveRecords(counts map[string]int) {
	for tag, n := range counts {
		m.records.WithLabelValues(tag).Add(float64(n))
	}
}

// ObserveReport counts the violations of a report.
func (m *Metrics) ObserveReport(r *gedcom.Report) {
	for _, v := range r.Violations {
		m.violations.WithLabelValues(v.Code).Inc()
	}
}

// ObservePhase records how long a phase took.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.duration.WithLabelValues(phase).Observe(d.Seconds())
}

// Time runs fn and records its duration under phase.
func (m *Metrics) Time(phase string, fn func() error) error {
	start := time.Now()
	err := fn()
	m.ObservePhase(phase, time.Since(start))
	return err
}

// WriteText writes every collector in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
