// Package gate runs the validators over report bundles: the table linter and
// the KPI conflict scanner before the write step, the citation critic after it.
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/reportgate/internal/cache"
	"github.com/ppiankov/reportgate/internal/critic"
	"github.com/ppiankov/reportgate/internal/kpi"
	"github.com/ppiankov/reportgate/internal/lint"
	"github.com/ppiankov/reportgate/internal/metrics"
	"github.com/ppiankov/reportgate/internal/model"
)

// ErrGateFailed is returned by callers that turn a failing verdict into an error
var ErrGateFailed = errors.New("gate failed")

// Pipeline orchestrates the validators for one configuration
type Pipeline struct {
	linter     *lint.Linter
	normalizer *kpi.Normalizer
	scanner    *kpi.Scanner
	critic     *critic.Critic
	splitter   critic.SentenceSplitter // nil keeps the critic's default
	cache      cache.Cache
	metrics    *metrics.Recorder
	logger     *slog.Logger
	configKey  []byte // validator configuration, part of every cache key
	now        func() time.Time
	newID      func() string
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithCache replaces the configured result cache. A nil cache disables caching.
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithMetrics records into the given recorder
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.metrics = r
		}
	}
}

// WithSplitter replaces the critic's sentence splitter
func WithSplitter(s critic.SentenceSplitter) Option {
	return func(p *Pipeline) { p.splitter = s }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline. Invalid patterns in cfg are reported here.
func NewPipeline(cfg *model.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	linter, err := lint.New(cfg.Lint)
	if err != nil {
		return nil, fmt.Errorf("lint config: %w", err)
	}
	normalizer, err := kpi.NewNormalizer(cfg.KPI)
	if err != nil {
		return nil, fmt.Errorf("kpi config: %w", err)
	}
	scanner, err := kpi.NewScanner(cfg.KPI)
	if err != nil {
		return nil, fmt.Errorf("kpi config: %w", err)
	}

	p := &Pipeline{
		linter:     linter,
		normalizer: normalizer,
		scanner:    scanner,
		cache:      cache.FromConfig(cfg.Cache),
		metrics:    metrics.NewRecorder(),
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.critic, err = critic.New(cfg.Critic, critic.WithSplitter(p.splitter)); err != nil {
		return nil, fmt.Errorf("critic config: %w", err)
	}

	splitter := "default"
	if p.splitter != nil {
		splitter = fmt.Sprintf("%T", p.splitter)
	}
	p.configKey, err = json.Marshal(struct {
		Lint     model.LintConfig   `json:"lint"`
		KPI      model.KPIConfig    `json:"kpi"`
		Critic   model.CriticConfig `json:"critic"`
		Splitter string             `json:"splitter"`
	}{cfg.Lint, cfg.KPI, cfg.Critic, splitter})
	if err != nil {
		return nil, fmt.Errorf("fingerprint config: %w", err)
	}
	return p, nil
}

// Metrics returns the recorder the pipeline writes to
func (p *Pipeline) Metrics() *metrics.Recorder {
	return p.metrics
}

// PreWrite lints the tables and scans their KPIs for cross-document conflicts.
// It passes when neither validator reports an error.
func (p *Pipeline) PreWrite(tables []model.EvidenceTable) model.PreWriteResult {
	issues := p.linter.Lint(tables)
	points := p.normalizer.Points(tables)
	conflicts := p.scanner.Detect(points)

	res := model.PreWriteResult{
		LintIssues: issues,
		KpiPoints:  len(points),
		Conflicts:  conflicts,
	}
	for _, issue := range issues {
		countSeverity(&res, issue.Severity)
	}
	for _, c := range conflicts {
		countSeverity(&res, c.Severity)
	}
	res.Passed = res.ErrorCount == 0

	p.metrics.RecordPreWrite(res)
	return res
}

// PostWrite audits a written report
func (p *Pipeline) PostWrite(in critic.Input) model.CritiqueResult {
	res := p.critic.Critique(in)
	p.metrics.RecordPostWrite(res)
	return res
}

// Check runs every applicable validator over a bundle. The post-write stage
// runs only when the bundle carries a report. A failing verdict is not an
// error; the error result is reserved for cancellation.
func (p *Pipeline) Check(ctx context.Context, b *Bundle) (*model.GateReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := p.now()
	logger := p.logger.With("bundle", b.ID)

	key, err := p.cacheKey(b)
	if err != nil {
		return nil, err
	}

	if report, ok := p.cached(key); ok {
		report.RunID = p.newID()
		report.BundleID = b.ID
		report.CheckedAt = start.UTC()
		report.Cached = true

		p.metrics.RecordCheck(report.Passed, p.now().Sub(start).Seconds())
		logger.Debug("cache hit", "run_id", report.RunID, "passed", report.Passed)
		return report, nil
	}

	pre := p.PreWrite(b.Tables)
	report := &model.GateReport{
		RunID:     p.newID(),
		BundleID:  b.ID,
		CheckedAt: start.UTC(),
		PreWrite:  &pre,
		Passed:    pre.Passed,
	}

	if b.HasReport() {
		post := p.PostWrite(critic.Input{
			ReportMarkdown:      b.ReportMarkdown,
			EvidenceIDs:         b.CitableIDs(),
			Claims:              b.Claims,
			RequiredCoveragePct: b.RequiredCoveragePct,
			ExecSummaryHeadings: b.ExecSummaryHeadings,
		})
		report.PostWrite = &post
		report.Passed = report.Passed && post.Passed
	}

	p.store(key, report, logger)
	p.metrics.RecordCheck(report.Passed, p.now().Sub(start).Seconds())

	attrs := []any{
		"run_id", report.RunID,
		"passed", report.Passed,
		"lint_issues", len(pre.LintIssues),
		"kpi_points", pre.KpiPoints,
		"conflicts", len(pre.Conflicts),
	}
	if report.PostWrite != nil {
		attrs = append(attrs,
			"coverage_pct", report.PostWrite.CoveragePct,
			"unknown_evidence", len(report.PostWrite.UnknownEvidenceIDs))
	}
	logger.Info("bundle checked", attrs...)

	return report, nil
}

// cacheKey covers the validator configuration and every input that affects
// the verdict. The bundle ID is not part of it.
func (p *Pipeline) cacheKey(b *Bundle) (string, error) {
	content, err := json.Marshal(struct {
		Tables              []model.EvidenceTable `json:"tables"`
		ReportMarkdown      string                `json:"report_markdown"`
		EvidenceIDs         []string              `json:"evidence_ids"`
		Claims              []model.Claim         `json:"claims"`
		RequiredCoveragePct *float64              `json:"required_coverage_pct"`
		ExecSummaryHeadings []string              `json:"exec_summary_headings"`
	}{
		b.Tables,
		b.ReportMarkdown,
		b.CitableIDs(),
		b.Claims,
		b.RequiredCoveragePct,
		b.ExecSummaryHeadings,
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint bundle %s: %w", b.ID, err)
	}
	return cache.Key(p.configKey, content), nil
}

func (p *Pipeline) cached(key string) (*model.GateReport, bool) {
	if p.cache == nil {
		return nil, false
	}

	data, ok := p.cache.Get(key)
	if ok {
		var report model.GateReport
		if err := json.Unmarshal(data, &report); err == nil {
			p.metrics.RecordCacheLookup(true)
			return &report, true
		}
		_ = p.cache.Delete(key)
	}

	p.metrics.RecordCacheLookup(false)
	return nil, false
}

func (p *Pipeline) store(key string, report *model.GateReport, logger *slog.Logger) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		logger.Warn("encode result for cache", "error", err)
		return
	}
	if err := p.cache.Set(key, data, 0); err != nil {
		logger.Warn("store result in cache", "error", err)
	}
}

func countSeverity(res *model.PreWriteResult, s model.Severity) {
	switch s {
	case model.SeverityError:
		res.ErrorCount++
	case model.SeverityWarning:
		res.WarningCount++
	}
}
