// Package metrics records gate outcomes as Prometheus metrics. Each Recorder
// owns a private registry so batch runs and tests never share counters.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/reportgate/internal/model"
)

const namespace = "reportgate"

// Stage names used as the "stage" label
const (
	StagePreWrite  = "pre_write"
	StagePostWrite = "post_write"
	StageCheck     = "check"
)

// Recorder holds the gate metrics
type Recorder struct {
	registry *prometheus.Registry

	checks          *prometheus.CounterVec
	lintIssues      *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	coverage        prometheus.Histogram
	unknownCitation prometheus.Counter
	cacheLookups    *prometheus.CounterVec
	checkDuration   prometheus.Histogram
}

// NewRecorder creates a recorder backed by a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// Labels: stage (pre_write, post_write, check), outcome (pass, fail)
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_checks_total",
			Help:      "Gate evaluations by stage and outcome",
		}, []string{"stage", "outcome"}),

		// Labels: type (lint issue type), severity (error, warning)
		lintIssues: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lint_issues_total",
			Help:      "Numeric table lint issues found",
		}, []string{"type", "severity"}),

		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kpi_conflicts_total",
			Help:      "Cross-document KPI conflicts found",
		}, []string{"severity"}),

		coverage: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "critic_coverage_pct",
			Help:      "Citation coverage of audited reports in percent",
			Buckets:   []float64{50, 75, 90, 95, 99, 100},
		}),

		unknownCitation: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "critic_unknown_citations_total",
			Help:      "Distinct unknown evidence IDs cited by audited reports",
		}),

		// Labels: result (hit, miss)
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Gate result cache lookups",
		}, []string{"result"}),

		checkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Time spent evaluating one bundle",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

// Registry exposes the underlying registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordPreWrite records a pre-write verdict and its findings
func (r *Recorder) RecordPreWrite(res model.PreWriteResult) {
	r.checks.WithLabelValues(StagePreWrite, outcome(res.Passed)).Inc()
	for _, issue := range res.LintIssues {
		r.lintIssues.WithLabelValues(string(issue.Type), string(issue.Severity)).Inc()
	}
	for _, c := range res.Conflicts {
		r.conflicts.WithLabelValues(string(c.Severity)).Inc()
	}
}

// RecordPostWrite records a post-write verdict
func (r *Recorder) RecordPostWrite(res model.CritiqueResult) {
	r.checks.WithLabelValues(StagePostWrite, outcome(res.Passed)).Inc()
	r.coverage.Observe(res.CoveragePct)
	r.unknownCitation.Add(float64(len(res.UnknownEvidenceIDs)))
}

// RecordCheck records the overall verdict of one bundle
func (r *Recorder) RecordCheck(passed bool, seconds float64) {
	r.checks.WithLabelValues(StageCheck, outcome(passed)).Inc()
	r.checkDuration.Observe(seconds)
}

// RecordCacheLookup records a cache hit or miss
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// WriteTextfile writes the current metrics in the node-exporter textfile format
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func outcome(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
